package vertical

import (
	"math"
	"sort"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/hough"
	"github.com/banshee-data/lri/internal/monitoring"
)

// Estimate discovers the vertical scanline structure of the cloud. It runs
// the peak-pick / fit / conflict-resolve loop until every point is assigned,
// the accumulator has no peak left, or the iteration cap is hit. The
// returned scanlines are sorted by angle ascending with dense ids.
func Estimate(points *geom.PointArray, cfg Config) Result {
	accum := buildAccumulator(points, cfg)
	accum.Build(points)

	pool := NewPool(accum, points.Len())

	iteration := -1
	currentID := 0
	endReason := AllAssigned

	for pool.Unassigned() > 0 {
		iteration++
		if iteration > cfg.MaxIterations {
			endReason = MaxIterations
			monitoring.Logf("vertical: maximum iterations reached")
			break
		}

		cell, ok := accum.FindMaximum(pool.AverageOffset())
		if !ok {
			endReason = NoMorePeaks
			monitoring.Logf("vertical: no more peaks found")
			break
		}

		monitoring.Logf("vertical: iteration %d peak offset=%.6f angle=%.6f votes=%.1f hash=%d",
			iteration, cell.Offset, cell.Angle, cell.Votes, cell.Hash)

		seedBounds := computeErrorBounds(points, cell.Offset)
		seedMargin := symmetricMargin(accum.OffsetStep(), accum.AngleStep())
		seed := computeScanlineLimits(points, seedBounds.Final, cell.Offset, cell.Angle, seedMargin, 0)

		est := estimateScanline(points, pool, seedBounds, seed, cfg)
		if est == nil {
			monitoring.Logf("vertical: fit failed with %d points in band", len(seed.Indices))
			accum.EraseByHash(cell.Hash)
			continue
		}

		candidate := &Scanline{
			ID:           currentID,
			PointsCount:  len(est.limits.Indices),
			Offset:       est.offset,
			Angle:        est.angle,
			Bounds:       angleBoundsFor(est.offset.CI, est.angle.CI, points.MinRange, points.MaxRange),
			Dependencies: est.dependencies,
			Uncertainty:  est.uncertainty,
			HoughVotes:   cell.Votes,
			HoughHash:    cell.Hash,
			Heuristic:    est.heuristic,
		}

		if !resolveConflicts(pool, points, candidate, est) {
			continue
		}

		// Consume the accepted region. A heuristic candidate has no hash of
		// its own worth keeping, so its points are unvoted directly; a fit
		// candidate erases its peak by hash, symmetric with the restore on
		// retraction.
		if est.heuristic {
			accum.RemoveVotes(points, est.limits.Indices)
		} else {
			accum.EraseByHash(cell.Hash)
		}

		pool.Assign(candidate, est.limits.Indices)

		monitoring.Logf("vertical: scanline %d assigned with %d points (offset=%.6f angle=%.6f uncertainty=%v), %d unassigned",
			currentID, candidate.PointsCount, candidate.Offset.Value, candidate.Angle.Value,
			candidate.Uncertainty, pool.Unassigned())

		currentID++
	}

	if pool.Unassigned() > 0 {
		monitoring.Logf("vertical: %d spurious points left unassigned", pool.Unassigned())
	}

	return buildResult(pool, points, iteration, endReason)
}

// buildAccumulator sizes the grid from the cloud: the offset axis cannot
// exceed the smallest range (asin domain), the angle axis covers (-pi/2,
// pi/2).
func buildAccumulator(points *geom.PointArray, cfg Config) *hough.Accumulator {
	offsetMax := math.Min(points.MinRange, cfg.MaxOffset) - cfg.OffsetStep
	offsetMin := -offsetMax

	angleMax := math.Pi/2 - cfg.AngleStep
	angleMin := -angleMax

	return hough.NewAccumulator(offsetMin, offsetMax, cfg.OffsetStep, angleMin, angleMax, cfg.AngleStep)
}

// buildResult extracts the surviving scanlines sorted by angle, renumbers
// them densely and remaps assignments and dependencies.
func buildResult(pool *Pool, points *geom.PointArray, iterations int, endReason EndReason) Result {
	var scanlines []Scanline
	pool.ForEachScanline(func(s *Scanline) {
		scanlines = append(scanlines, *s)
	})

	sort.SliceStable(scanlines, func(a, b int) bool {
		return scanlines[a].Angle.Value < scanlines[b].Angle.Value
	})

	oldToNew := make(map[int]int, len(scanlines))
	for newID := range scanlines {
		oldToNew[scanlines[newID].ID] = newID
	}

	for i := range scanlines {
		scanlines[i].ID = oldToNew[scanlines[i].ID]
		deps := scanlines[i].Dependencies
		for k, d := range deps {
			deps[k] = oldToNew[d]
		}
	}

	assignments := make([]int, len(pool.assignments))
	for i, id := range pool.assignments {
		if id >= 0 {
			assignments[i] = oldToNew[id]
		} else {
			assignments[i] = -1
		}
	}

	if iterations < 0 {
		iterations = 0
	}

	monitoring.Logf("vertical: %d scanlines, %d unassigned points", len(scanlines), pool.Unassigned())

	return Result{
		Iterations:       iterations,
		UnassignedPoints: pool.Unassigned(),
		PointsCount:      points.Len(),
		EndReason:        endReason,
		Scanlines:        scanlines,
		PointScanlineIDs: assignments,
	}
}
