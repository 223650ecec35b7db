// Package horizontal estimates the horizontal intrinsics of each vertical
// scanline: its azimuthal resolution (firings per revolution), horizontal
// offset and azimuthal phase. For every candidate resolution the residuals
// of the azimuths against the ideal firing grid form a family of parallel
// lines in (1/rangeXy, residual) space; a periodic multi-line fit over that
// family scores the candidate, and the resolution with the lowest loss wins.
package horizontal

import (
	"sort"

	"github.com/banshee-data/lri/internal/geom"
)

// ScanlineArray groups the cloud's points by scanline, each group sorted by
// reciprocal horizontal range ascending, with the per-point fields the
// horizontal fit consumes.
type ScanlineArray struct {
	sizes       []int
	thetas      [][]float64
	rangesXy    [][]float64
	invRangesXy [][]float64
}

// NewScanlineArray builds the grouped view from the vertical assignment
// vector. Points with id -1 are skipped.
func NewScanlineArray(points *geom.PointArray, assignments []int, scanlineCount int) *ScanlineArray {
	byScanline := make([][]int, scanlineCount)
	for i, id := range assignments {
		if id >= 0 && id < scanlineCount {
			byScanline[id] = append(byScanline[id], i)
		}
	}

	a := &ScanlineArray{
		sizes:       make([]int, scanlineCount),
		thetas:      make([][]float64, scanlineCount),
		rangesXy:    make([][]float64, scanlineCount),
		invRangesXy: make([][]float64, scanlineCount),
	}

	for id, indices := range byScanline {
		sort.SliceStable(indices, func(a, b int) bool {
			return points.InvRangeXy[indices[a]] < points.InvRangeXy[indices[b]]
		})

		a.sizes[id] = len(indices)
		a.thetas[id] = make([]float64, len(indices))
		a.rangesXy[id] = make([]float64, len(indices))
		a.invRangesXy[id] = make([]float64, len(indices))
		for k, i := range indices {
			a.thetas[id][k] = points.Theta[i]
			a.rangesXy[id][k] = points.RangeXy[i]
			a.invRangesXy[id][k] = points.InvRangeXy[i]
		}
	}

	return a
}

// Count returns the number of scanlines.
func (a *ScanlineArray) Count() int { return len(a.sizes) }

// Size returns the number of points in a scanline.
func (a *ScanlineArray) Size(idx int) int { return a.sizes[idx] }

// Thetas returns the azimuths of a scanline, ordered by 1/rangeXy.
func (a *ScanlineArray) Thetas(idx int) []float64 { return a.thetas[idx] }

// RangesXy returns the horizontal ranges of a scanline.
func (a *ScanlineArray) RangesXy(idx int) []float64 { return a.rangesXy[idx] }

// InvRangesXy returns the reciprocal horizontal ranges of a scanline.
func (a *ScanlineArray) InvRangesXy(idx int) []float64 { return a.invRangesXy[idx] }
