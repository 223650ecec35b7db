// Package geom holds the point-cloud representation shared by the intrinsics
// estimators. A PointArray owns the Cartesian coordinates of one cloud and
// the polar fields derived from them, computed once at construction and
// immutable afterwards.
package geom

import (
	"errors"
	"math"
	"sort"
)

// Validation failures surfaced when building a PointArray.
var (
	ErrMismatchedSizes = errors.New("point coordinate arrays differ in length")
	ErrEmptyPointCloud = errors.New("point cloud is empty")
	ErrRangesXyZero    = errors.New("point cloud contains a point with zero horizontal range")
)

// coordsEpsFloor is the smallest coordinate quantization computeCoordsEps
// will report. Below this the bound is dominated by float noise.
const coordsEpsFloor = 1e-6

// PointArray is an immutable point cloud with precomputed polar fields.
// Range is the Euclidean norm, RangeXy the horizontal norm, Phi the
// elevation asin(z/r), Theta the azimuth atan2(y, x).
type PointArray struct {
	X, Y, Z []float64

	Range      []float64
	RangeXy    []float64
	Phi        []float64
	Theta      []float64
	InvRange   []float64
	InvRangeXy []float64

	MinRange  float64
	MaxRange  float64
	CoordsEps float64
}

// NewPointArray validates the coordinate arrays and precomputes the polar
// fields. It fails with ErrMismatchedSizes, ErrEmptyPointCloud or
// ErrRangesXyZero on invalid input.
func NewPointArray(x, y, z []float64) (*PointArray, error) {
	if len(x) != len(y) || len(y) != len(z) {
		return nil, ErrMismatchedSizes
	}
	if len(x) == 0 {
		return nil, ErrEmptyPointCloud
	}

	n := len(x)
	p := &PointArray{
		X: x, Y: y, Z: z,
		Range:      make([]float64, n),
		RangeXy:    make([]float64, n),
		Phi:        make([]float64, n),
		Theta:      make([]float64, n),
		InvRange:   make([]float64, n),
		InvRangeXy: make([]float64, n),
	}

	p.MinRange = math.Inf(1)
	p.MaxRange = math.Inf(-1)

	for i := 0; i < n; i++ {
		xySq := x[i]*x[i] + y[i]*y[i]
		if xySq <= 0 {
			return nil, ErrRangesXyZero
		}

		rXy := math.Sqrt(xySq)
		r := math.Sqrt(xySq + z[i]*z[i])

		p.RangeXy[i] = rXy
		p.Range[i] = r
		p.Phi[i] = math.Asin(z[i] / r)
		p.Theta[i] = math.Atan2(y[i], x[i])
		p.InvRange[i] = 1 / r
		p.InvRangeXy[i] = 1 / rXy

		if r < p.MinRange {
			p.MinRange = r
		}
		if r > p.MaxRange {
			p.MaxRange = r
		}
	}

	p.CoordsEps = computeCoordsEps(x, y, z)

	return p, nil
}

// Len returns the number of points.
func (p *PointArray) Len() int { return len(p.X) }

// computeCoordsEps infers an upper bound on the per-axis Cartesian
// quantization of the input: the smallest positive difference between
// consecutive sorted absolute coordinate values, floored at coordsEpsFloor.
func computeCoordsEps(x, y, z []float64) float64 {
	values := make([]float64, 0, 3*len(x))
	for _, arr := range [][]float64{x, y, z} {
		for _, v := range arr {
			values = append(values, math.Abs(v))
		}
	}
	sort.Float64s(values)

	eps := math.Inf(1)
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 && d < eps {
			eps = d
		}
	}

	if math.IsInf(eps, 1) || eps < coordsEpsFloor {
		return coordsEpsFloor
	}
	return eps
}
