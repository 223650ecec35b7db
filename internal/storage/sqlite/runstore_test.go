package sqlite

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lri"
)

func testStore(t *testing.T) *RunStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunStore(db)
}

func sampleDetailed() lri.IntrinsicsDetailed {
	return lri.IntrinsicsDetailed{
		Scanlines: []lri.ScanlineDetailed{
			{
				VerticalOffset:   lri.ValueConfInterval{Value: 0.038, CI: lri.Interval{Lower: 0.037, Upper: 0.039}},
				VerticalAngle:    lri.ValueConfInterval{Value: -0.45, CI: lri.Interval{Lower: -0.451, Upper: -0.449}},
				HorizontalOffset: 0.025,
				AzimuthalOffset:  0.0003,
				Resolution:       2048,
				Uncertainty:      -1234.5,
				PointsCount:      2048,
			},
			{
				VerticalOffset:      lri.ValueConfInterval{Value: -0.01},
				VerticalAngle:       lri.ValueConfInterval{Value: 0.1},
				Resolution:          1024,
				Uncertainty:         math.Inf(1),
				PointsCount:         8,
				VerticalHeuristic:   true,
				HorizontalHeuristic: true,
			},
		},
		VerticalIterations: 12,
		UnassignedPoints:   3,
		PointsCount:        2059,
		EndReason:          lri.EndAllAssigned,
	}
}

func TestRunStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	detailed := sampleDetailed()

	runID, err := store.InsertRun(detailed, "clouds/frame_0001.bin")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := store.GetRun(runID)
	require.NoError(t, err)

	require.Equal(t, "clouds/frame_0001.bin", run.SourceFile)
	require.Equal(t, 2059, run.PointsCount)
	require.Equal(t, 2, run.ScanlinesCount)
	require.Equal(t, 3, run.UnassignedPoints)
	require.Equal(t, 12, run.Iterations)
	require.Equal(t, lri.EndAllAssigned.String(), run.EndReason)
	require.Greater(t, run.CreatedAtNs, int64(0))

	intrinsics, err := store.RunIntrinsics(runID)
	require.NoError(t, err)
	require.Len(t, intrinsics.Scanlines, 2)
	require.Equal(t, 0.038, intrinsics.Scanlines[0].VerticalOffset)
	require.Equal(t, int32(2048), intrinsics.Scanlines[0].Resolution)
}

func TestRunStoreListNewestFirst(t *testing.T) {
	store := testStore(t)

	first, err := store.InsertRun(sampleDetailed(), "a.bin")
	require.NoError(t, err)
	second, err := store.InsertRun(sampleDetailed(), "b.bin")
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ids := []string{runs[0].RunID, runs[1].RunID}
	require.Contains(t, ids, first)
	require.Contains(t, ids, second)
	require.GreaterOrEqual(t, runs[0].CreatedAtNs, runs[1].CreatedAtNs)
}

func TestRunStoreGetMissing(t *testing.T) {
	store := testStore(t)
	_, err := store.GetRun("no-such-run")
	require.Error(t, err)
}

func TestRunStoreScanlineRows(t *testing.T) {
	store := testStore(t)
	runID, err := store.InsertRun(sampleDetailed(), "")
	require.NoError(t, err)

	var count int
	require.NoError(t, store.db.QueryRow(
		`SELECT COUNT(*) FROM run_scanlines WHERE run_id = ?`, runID).Scan(&count))
	require.Equal(t, 2, count)

	// The heuristic scanline's infinite uncertainty is stored as NULL.
	var uncertainty interface{}
	require.NoError(t, store.db.QueryRow(
		`SELECT uncertainty FROM run_scanlines WHERE run_id = ? AND scanline_id = 1`, runID).Scan(&uncertainty))
	require.Nil(t, uncertainty)
}
