package vertical

import (
	"math"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/mathx"
)

// errorBounds holds per-point upper bounds on the deviation of phi induced
// by the Cartesian quantization of the input. Final = Phis + Correction.
type errorBounds struct {
	Phis       []float64
	Correction []float64
	Final      []float64
}

// computeErrorBounds derives, for every point and a proposed vertical
// offset, an upper bound on the expected deviation of phi from the
// quantization eps of the coordinates:
//
//	phiBound  = (sqrt2*eps*|z| + eps*rXy) / (rXy² - sqrt2*eps*rXy)
//	corrBound = |offset|*sqrt3*eps / (r² - sqrt3*eps*r)
func computeErrorBounds(points *geom.PointArray, offset float64) errorBounds {
	n := points.Len()
	eps := points.CoordsEps
	absOffset := math.Abs(offset)

	b := errorBounds{
		Phis:       make([]float64, n),
		Correction: make([]float64, n),
		Final:      make([]float64, n),
	}

	for i := 0; i < n; i++ {
		z := points.Z[i]
		rXy := points.RangeXy[i]
		r := points.Range[i]

		phiBound := (math.Sqrt2*eps*math.Abs(z) + eps*rXy) / (rXy*rXy - math.Sqrt2*eps*rXy)
		corrBound := absOffset * math.Sqrt(3) * eps / (r*r - math.Sqrt(3)*eps*r)

		b.Phis[i] = phiBound
		b.Correction[i] = corrBound
		b.Final[i] = phiBound + corrBound
	}

	return b
}

// limits is a candidate band over the cloud: the per-point phi envelope of
// a proposed (offset, angle) pair, the membership mask, and the indices of
// the member points.
type limits struct {
	Indices []int
	Mask    []bool
	Lower   []float64
	Upper   []float64
}

func (l *limits) sameMask(other *limits) bool {
	for i := range l.Mask {
		if l.Mask[i] != other.Mask[i] {
			return false
		}
	}
	return true
}

// computeScanlineLimits builds the band of points whose phi is consistent
// with phi = asin(offset/range) + angle within the given margins plus the
// per-point error bounds. The invRangesShift recentres the offset margin
// around the band's mean reciprocal range, which keeps the envelope tight
// where the fit actually has support.
func computeScanlineLimits(
	points *geom.PointArray, errBounds []float64, offset, angle float64, m margin, invRangesShift float64,
) limits {
	n := points.Len()

	l := limits{
		Mask:  make([]bool, n),
		Lower: make([]float64, n),
		Upper: make([]float64, n),
	}

	for i := 0; i < n; i++ {
		invRange := points.InvRange[i]

		upperArcsin := math.Asin(mathx.ClampUnit((offset + m.offsetUpper) * invRange))
		lowerArcsin := math.Asin(mathx.ClampUnit((offset - m.offsetLower) * invRange))

		upperArcsinShifted := math.Asin(mathx.ClampUnit((offset + m.offsetUpper) * (invRange - invRangesShift)))
		lowerArcsinShifted := math.Asin(mathx.ClampUnit((offset - m.offsetLower) * (invRange - invRangesShift)))

		deltaUpper := upperArcsin - upperArcsinShifted
		deltaLower := lowerArcsin - lowerArcsinShifted

		upperTmp := upperArcsinShifted + angle
		lowerTmp := lowerArcsinShifted + angle

		upper := math.Max(upperTmp, lowerTmp) + deltaUpper + m.angleUpper + errBounds[i]
		lower := math.Min(lowerTmp, upperTmp) + deltaLower - m.angleLower - errBounds[i]

		l.Lower[i] = lower
		l.Upper[i] = upper

		phi := points.Phi[i]
		if lower <= phi && phi <= upper {
			l.Mask[i] = true
			l.Indices = append(l.Indices, i)
		}
	}

	return l
}
