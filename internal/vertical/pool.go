package vertical

import (
	"sort"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/hough"
)

// hashConflict tracks a rejected candidate's accumulator hash: which live
// scanlines blocked it and the votes it carried at the moment of erase. When
// the blocker set drains (all blockers retracted), the votes are restored so
// the peak can re-emerge.
type hashConflict struct {
	blockers map[int]struct{}
	votes    float64
}

// Pool owns all live scanline candidates of one vertical estimation, the
// point assignments, the accumulator, the heuristic dependency graph and the
// blocked-hash table. The pool is mutated only by the estimation loop.
type Pool struct {
	scanlines   map[int]*Scanline
	assignments []int
	unassigned  int

	accum *hough.Accumulator

	// revDeps maps an anchor scanline id to the heuristic scanlines that
	// used it as support. Retraction follows these edges transitively.
	revDeps map[int][]int

	hashConflicts map[uint64]*hashConflict
}

// NewPool prepares an empty pool over n points backed by the accumulator.
func NewPool(accum *hough.Accumulator, n int) *Pool {
	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	return &Pool{
		scanlines:     make(map[int]*Scanline),
		assignments:   assignments,
		unassigned:    n,
		accum:         accum,
		revDeps:       make(map[int][]int),
		hashConflicts: make(map[uint64]*hashConflict),
	}
}

// Unassigned returns how many points have no scanline.
func (p *Pool) Unassigned() int { return p.unassigned }

// Assignments returns the point->scanline id vector (-1 = unassigned).
func (p *Pool) Assignments() []int { return p.assignments }

// ScanlineByID returns the live scanline with the given id, or nil.
func (p *Pool) ScanlineByID(id int) *Scanline { return p.scanlines[id] }

// sortedIDs returns the live scanline ids in ascending order. All pool
// iteration goes through this so tie-breaking never depends on map order.
func (p *Pool) sortedIDs() []int {
	ids := make([]int, 0, len(p.scanlines))
	for id := range p.scanlines {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ForEachScanline calls fn for every live scanline in ascending id order.
func (p *Pool) ForEachScanline(fn func(*Scanline)) {
	for _, id := range p.sortedIDs() {
		fn(p.scanlines[id])
	}
}

// AverageOffset returns the mean vertical offset of the live scanlines, the
// tie-break hint for peak picking. Zero when the pool is empty.
func (p *Pool) AverageOffset() float64 {
	if len(p.scanlines) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.scanlines {
		sum += s.Offset.Value
	}
	return sum / float64(len(p.scanlines))
}

// Assign records an accepted scanline and claims its points.
func (p *Pool) Assign(s *Scanline, indices []int) {
	for _, i := range indices {
		p.assignments[i] = s.ID
	}
	p.unassigned -= len(indices)
	p.scanlines[s.ID] = s

	for _, anchor := range s.Dependencies {
		p.revDeps[anchor] = append(p.revDeps[anchor], s.ID)
	}
}

// Remove retracts a scanline: its votes are reinstated in the accumulator,
// its points return to the unassigned set, and its dependency edges are
// dropped. Returns the removed scanline, or nil if the id is not live.
func (p *Pool) Remove(points *geom.PointArray, id int) *Scanline {
	s, ok := p.scanlines[id]
	if !ok {
		return nil
	}

	indices := p.pointIndicesOf(id)
	p.accum.AddVotes(points, indices)

	for _, i := range indices {
		p.assignments[i] = -1
	}
	p.unassigned += len(indices)
	delete(p.scanlines, id)

	delete(p.revDeps, id)
	for anchor, deps := range p.revDeps {
		kept := deps[:0]
		for _, d := range deps {
			if d != id {
				kept = append(kept, d)
			}
		}
		if len(kept) == 0 {
			delete(p.revDeps, anchor)
		} else {
			p.revDeps[anchor] = kept
		}
	}

	return s
}

// Dependents returns the heuristic scanlines anchored on the given id.
func (p *Pool) Dependents(id int) []int { return p.revDeps[id] }

// pointIndicesOf collects the indices currently assigned to a scanline.
func (p *Pool) pointIndicesOf(id int) []int {
	var indices []int
	for i, sid := range p.assignments {
		if sid == id {
			indices = append(indices, i)
		}
	}
	return indices
}

// blockHash records a hash erased because live scanlines outranked it.
func (p *Pool) blockHash(hash uint64, votes float64, blockers []int) {
	hc, ok := p.hashConflicts[hash]
	if !ok {
		hc = &hashConflict{blockers: make(map[int]struct{})}
		p.hashConflicts[hash] = hc
	}
	for _, id := range blockers {
		hc.blockers[id] = struct{}{}
	}
	hc.votes = votes
}

// unblockHashesFor removes a retracted scanline from every blocker set and
// returns the (hash, votes) pairs whose set drained, in ascending hash
// order. The caller restores those votes.
func (p *Pool) unblockHashesFor(id int) []struct {
	hash  uint64
	votes float64
} {
	hashes := make([]uint64, 0, len(p.hashConflicts))
	for h := range p.hashConflicts {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(a, b int) bool { return hashes[a] < hashes[b] })

	var drained []struct {
		hash  uint64
		votes float64
	}
	for _, h := range hashes {
		hc := p.hashConflicts[h]
		delete(hc.blockers, id)
		if len(hc.blockers) == 0 {
			drained = append(drained, struct {
				hash  uint64
				votes float64
			}{h, hc.votes})
			delete(p.hashConflicts, h)
		}
	}
	return drained
}
