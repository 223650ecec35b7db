// Package sqlite persists estimation runs and their per-scanline results to
// a SQLite database, so repeated estimations over a growing corpus of
// clouds can be compared after the fact.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lri/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens (or creates) the database at path and applies any pending
// schema migrations.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("locate migrations: %w", err)
	}

	if err := migrateUp(db, sub); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// migrateUp runs all pending migrations up to the latest version.
// Returns nil if the schema is already current.
func migrateUp(db *sql.DB, migrations fs.FS) error {
	sourceDriver, err := iofs.New(migrations, ".")
	if err != nil {
		return fmt.Errorf("create iofs source driver: %w", err)
	}

	// Note: the migrate instance must not be closed when using
	// WithInstance, because the sqlite driver's Close() would close the
	// underlying sql.DB we manage separately.
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}

// migrateLogger routes migration progress through the package log seam.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("storage: "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }
