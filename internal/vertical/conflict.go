package vertical

import (
	"math"
	"sort"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/monitoring"
)

// uncertaintyEpsilon breaks exact uncertainty ties in favour of the
// incumbent scanlines.
const uncertaintyEpsilon = 1e-6

// conflictDecision is the outcome of evaluating a candidate against the
// live scanlines it intersects.
type conflictDecision struct {
	reject      bool
	conflicting []int
}

// intersectionInfo lists the live scanlines a candidate intersects, either
// empirically (shared points) or theoretically (overlapping elevation
// bounds), with their uncertainties. IDs ascending.
type intersectionInfo struct {
	empirical     bool
	conflicting   []int
	uncertainties []float64
}

// resolveConflicts decides whether a candidate enters the pool. A candidate
// with no intersection is accepted outright. Otherwise the uncertainties
// decide: the candidate is rejected when it is no better than the best
// conflicting scanline (its hash is blocked until every blocker is gone),
// or accepted with every conflicting scanline retracted — transitively
// including heuristic scanlines anchored on them.
//
// Returns true when the candidate should be kept.
func resolveConflicts(pool *Pool, points *geom.PointArray, candidate *Scanline, est *estimation) bool {
	info := computeIntersections(pool, candidate, est)

	decision := evaluateConflicts(pool, candidate, est, info)

	if decision.reject {
		monitoring.Logf("vertical: scanline candidate %d rejected", candidate.ID)
		pool.accum.EraseByHash(candidate.HoughHash)
		if len(decision.conflicting) > 0 {
			pool.blockHash(candidate.HoughHash, candidate.HoughVotes, decision.conflicting)
		}
		return false
	}

	if len(decision.conflicting) > 0 {
		retractScanlines(pool, points, candidate, decision.conflicting)
	}

	return true
}

// computeIntersections gathers empirical and theoretical conflicts between
// the candidate and every live scanline.
func computeIntersections(pool *Pool, candidate *Scanline, est *estimation) intersectionInfo {
	empMask := make(map[int]bool)
	for _, i := range est.limits.Indices {
		if id := pool.assignments[i]; id >= 0 {
			empMask[id] = true
		}
	}

	theoMask := make(map[int]bool)
	pool.ForEachScanline(func(other *Scanline) {
		thisLines := [2]struct{ lo, hi float64 }{
			{candidate.Bounds.LowerLine.Lower, candidate.Bounds.LowerLine.Upper},
			{candidate.Bounds.UpperLine.Lower, candidate.Bounds.UpperLine.Upper},
		}
		otherLines := [2]struct{ lo, hi float64 }{
			{other.Bounds.LowerLine.Lower, other.Bounds.LowerLine.Upper},
			{other.Bounds.UpperLine.Lower, other.Bounds.UpperLine.Upper},
		}

		allIntersect := true
		for _, tl := range thisLines {
			for _, ol := range otherLines {
				if !(ol.lo <= tl.hi && tl.lo <= ol.hi) {
					allIntersect = false
				}
			}
		}
		if allIntersect {
			theoMask[other.ID] = true
		}
	})

	ids := make([]int, 0, len(empMask)+len(theoMask))
	seen := make(map[int]bool)
	for id := range empMask {
		seen[id] = true
	}
	for id := range theoMask {
		seen[id] = true
	}
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	info := intersectionInfo{
		empirical:   len(empMask) > 0,
		conflicting: ids,
	}
	for _, id := range ids {
		info.uncertainties = append(info.uncertainties, pool.ScanlineByID(id).Uncertainty)
	}
	return info
}

// evaluateConflicts applies the uncertainty comparison rules.
func evaluateConflicts(pool *Pool, candidate *Scanline, est *estimation, info intersectionInfo) conflictDecision {
	if len(info.conflicting) == 0 {
		return conflictDecision{reject: false}
	}

	monitoring.Logf("vertical: candidate %d conflicts with %v (empirical: %v, uncertainty %v)",
		candidate.ID, info.conflicting, info.empirical, candidate.Uncertainty)

	// A candidate that would claim every remaining unassigned point is kept
	// unless it empirically steals points from a live scanline.
	if len(est.limits.Indices) == pool.Unassigned() {
		return conflictDecision{reject: info.empirical, conflicting: info.conflicting}
	}

	minU := math.Inf(1)
	for _, u := range info.uncertainties {
		if u < minU {
			minU = u
		}
	}
	minU -= uncertaintyEpsilon

	if math.IsInf(candidate.Uncertainty, 1) && math.IsInf(minU, 1) {
		if info.empirical {
			return conflictDecision{reject: true, conflicting: info.conflicting}
		}
		return conflictDecision{reject: false}
	}

	if candidate.Uncertainty >= minU {
		// Rejected: blocked only by the scanlines it could not beat.
		var blockers []int
		for k, id := range info.conflicting {
			if candidate.Uncertainty >= info.uncertainties[k] {
				blockers = append(blockers, id)
			}
		}
		return conflictDecision{reject: true, conflicting: blockers}
	}

	return conflictDecision{reject: false, conflicting: info.conflicting}
}

// retractScanlines removes the conflicting scanlines and, transitively, any
// heuristic scanline anchored on a removed one. For every removed scanline:
// its points go back to the unassigned set, its rasterized votes return to
// the accumulator, its hash is blocked by the winning candidate, and any
// hash whose blocker set drains is restored so it can re-emerge as a peak.
func retractScanlines(pool *Pool, points *geom.PointArray, winner *Scanline, conflicting []int) {
	// Breadth-first closure over the dependency graph; no recursion, the
	// chains can be long.
	toRemove := make(map[int]bool)
	queue := append([]int(nil), conflicting...)
	for _, id := range queue {
		toRemove[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range pool.Dependents(id) {
			if !toRemove[dep] {
				toRemove[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	removeOrder := make([]int, 0, len(toRemove))
	for id := range toRemove {
		removeOrder = append(removeOrder, id)
	}
	sort.Ints(removeOrder)

	monitoring.Logf("vertical: retracting scanlines %v", removeOrder)

	type restore struct {
		hash  uint64
		votes float64
	}
	var restores []restore

	for _, id := range removeOrder {
		for _, d := range pool.unblockHashesFor(id) {
			restores = append(restores, restore{d.hash, d.votes})
		}

		removed := pool.Remove(points, id)
		if removed == nil {
			continue
		}

		pool.blockHash(removed.HoughHash, removed.HoughVotes, []int{winner.ID})
	}

	for _, r := range restores {
		monitoring.Logf("vertical: restored hash %d", r.hash)
		pool.accum.RestoreVotes(r.hash, r.votes)
	}
}
