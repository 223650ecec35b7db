package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lri"
)

// Run is one persisted estimation: the summary counters plus the full
// intrinsics JSON for exact reproduction.
type Run struct {
	RunID            string          `json:"run_id"`
	SourceFile       string          `json:"source_file,omitempty"`
	PointsCount      int             `json:"points_count"`
	ScanlinesCount   int             `json:"scanlines_count"`
	UnassignedPoints int             `json:"unassigned_points"`
	Iterations       int             `json:"iterations"`
	EndReason        string          `json:"end_reason"`
	IntrinsicsJSON   json.RawMessage `json:"intrinsics_json"`
	CreatedAtNs      int64           `json:"created_at_ns"`
}

// RunStore provides persistence for estimation runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun stores a detailed estimation result. If sourceFile is non-empty
// it is recorded with the run. Returns the generated run id.
func (s *RunStore) InsertRun(detailed lri.IntrinsicsDetailed, sourceFile string) (string, error) {
	intrinsicsJSON, err := lri.IntrinsicsToJSONString(detailed.Intrinsics(), -1)
	if err != nil {
		return "", fmt.Errorf("serialize intrinsics: %w", err)
	}

	runID := uuid.New().String()
	createdAt := time.Now().UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO estimation_runs (
			run_id, source_file, points_count, scanlines_count,
			unassigned_points, iterations, end_reason, intrinsics_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		sourceFile,
		detailed.PointsCount,
		len(detailed.Scanlines),
		detailed.UnassignedPoints,
		detailed.VerticalIterations,
		detailed.EndReason.String(),
		intrinsicsJSON,
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, sl := range detailed.Scanlines {
		_, err = tx.Exec(`
			INSERT INTO run_scanlines (
				run_id, scanline_id, vertical_offset, vertical_angle,
				horizontal_offset, azimuthal_offset, resolution, points_count,
				uncertainty, vertical_heuristic, horizontal_heuristic
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			i,
			sl.VerticalOffset.Value,
			sl.VerticalAngle.Value,
			sl.HorizontalOffset,
			sl.AzimuthalOffset,
			sl.Resolution,
			sl.PointsCount,
			nullableUncertainty(sl.Uncertainty),
			boolToInt(sl.VerticalHeuristic),
			boolToInt(sl.HorizontalHeuristic),
		)
		if err != nil {
			return "", fmt.Errorf("insert run scanline %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}

	return runID, nil
}

// GetRun retrieves a run by id.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	var run Run
	err := s.db.QueryRow(`
		SELECT run_id, source_file, points_count, scanlines_count,
		       unassigned_points, iterations, end_reason, intrinsics_json, created_at_ns
		FROM estimation_runs
		WHERE run_id = ?
	`, runID).Scan(
		&run.RunID,
		&run.SourceFile,
		&run.PointsCount,
		&run.ScanlinesCount,
		&run.UnassignedPoints,
		&run.Iterations,
		&run.EndReason,
		(*stringAsRawJSON)(&run.IntrinsicsJSON),
		&run.CreatedAtNs,
	)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT run_id, source_file, points_count, scanlines_count,
		       unassigned_points, iterations, end_reason, intrinsics_json, created_at_ns
		FROM estimation_runs
		ORDER BY created_at_ns DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.RunID,
			&run.SourceFile,
			&run.PointsCount,
			&run.ScanlinesCount,
			&run.UnassignedPoints,
			&run.Iterations,
			&run.EndReason,
			(*stringAsRawJSON)(&run.IntrinsicsJSON),
			&run.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunIntrinsics decodes the stored intrinsics of a run.
func (s *RunStore) RunIntrinsics(runID string) (lri.Intrinsics, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return lri.Intrinsics{}, err
	}
	return lri.IntrinsicsFromJSONString(string(run.IntrinsicsJSON))
}

// nullableUncertainty maps an infinite uncertainty (heuristic scanline) to
// NULL; SQLite REAL has no infinity.
func nullableUncertainty(u float64) interface{} {
	if math.IsInf(u, 0) || math.IsNaN(u) {
		return nil
	}
	return u
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// stringAsRawJSON scans a TEXT column into a json.RawMessage.
type stringAsRawJSON json.RawMessage

func (r *stringAsRawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*r = stringAsRawJSON(v)
	case []byte:
		*r = stringAsRawJSON(append([]byte(nil), v...))
	case nil:
		*r = nil
	default:
		return fmt.Errorf("cannot scan %T into json.RawMessage", src)
	}
	return nil
}
