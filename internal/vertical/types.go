// Package vertical estimates the vertical intrinsics of a rotating
// multi-beam LiDAR from an unordered point cloud: how many scan lines
// produced the cloud and, for each, its vertical offset and pitch angle.
//
// The estimator repeatedly picks the strongest peak of a Hough accumulator
// over (offset, angle), grows a band of points around the peak, fits the
// model phi = offset/range + angle by weighted least squares with iterative
// band refinement, and resolves conflicts between candidates by comparing
// fit uncertainties. Losing scanlines are retracted, their votes reinstated,
// so a better explanation of the same points can win later.
package vertical

import (
	"math"

	"github.com/banshee-data/lri/internal/mathx"
)

// Default estimation parameters. The step sizes reproduce the accumulator
// resolution the estimator was tuned with; coarser steps trade accuracy for
// memory (the grid is offsetCount x angleCount cells of 16 bytes).
const (
	DefaultMaxIterations  = 10000
	DefaultMaxFitAttempts = 10
	DefaultMaxOffset      = 0.5
	DefaultOffsetStep     = 1e-3
	DefaultAngleStep      = 1e-4
)

// Config holds the tunable parameters of the vertical estimator.
type Config struct {
	MaxIterations  int
	MaxFitAttempts int
	MaxOffset      float64
	OffsetStep     float64
	AngleStep      float64
}

// DefaultConfig returns the standard parameter set.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  DefaultMaxIterations,
		MaxFitAttempts: DefaultMaxFitAttempts,
		MaxOffset:      DefaultMaxOffset,
		OffsetStep:     DefaultOffsetStep,
		AngleStep:      DefaultAngleStep,
	}
}

// EndReason records why the estimation loop terminated.
type EndReason int

const (
	// AllAssigned means every point was assigned to a scanline. This is the
	// normal termination condition.
	AllAssigned EndReason = iota
	// MaxIterations means the iteration cap was reached.
	MaxIterations
	// NoMorePeaks means the accumulator ran out of positive peaks.
	NoMorePeaks
)

func (r EndReason) String() string {
	switch r {
	case AllAssigned:
		return "all points assigned"
	case MaxIterations:
		return "maximum iterations reached"
	case NoMorePeaks:
		return "no more peaks"
	default:
		return "unknown"
	}
}

// AngleBounds are the theoretical elevation intervals a scanline can span:
// LowerLine maps the lower CI corner of (offset, angle) over the cloud's
// range extremes, UpperLine the upper corner.
type AngleBounds struct {
	LowerLine mathx.Interval
	UpperLine mathx.Interval
}

// Scanline is one accepted vertical scanline candidate.
type Scanline struct {
	ID          int
	PointsCount int

	Offset mathx.ValueCI
	Angle  mathx.ValueCI
	Bounds AngleBounds

	// Dependencies lists the scanline ids a heuristic candidate was anchored
	// on. Retracting an anchor retracts its dependents transitively.
	Dependencies []int

	// Uncertainty is the negated log-likelihood of the fit; +Inf marks a
	// heuristic candidate that could not be fit.
	Uncertainty float64

	HoughVotes float64
	HoughHash  uint64
	Heuristic  bool
}

// Result is the outcome of one vertical estimation.
type Result struct {
	Iterations       int
	UnassignedPoints int
	PointsCount      int
	EndReason        EndReason

	// Scanlines are sorted by angle ascending with ids renumbered 0..S-1.
	Scanlines []Scanline

	// PointScanlineIDs maps every point index to its scanline id, or -1.
	PointScanlineIDs []int
}

// margin holds asymmetric band margins around an (offset, angle) pair.
type margin struct {
	offsetLower, offsetUpper float64
	angleLower, angleUpper   float64
}

func symmetricMargin(offset, angle float64) margin {
	return margin{offsetLower: offset, offsetUpper: offset, angleLower: angle, angleUpper: angle}
}

// angleBoundsFor maps the CI corners of a candidate over the range extremes
// of the cloud. Arguments to asin are clamped to its domain.
func angleBoundsFor(offsetCI, angleCI mathx.Interval, minRange, maxRange float64) AngleBounds {
	return AngleBounds{
		LowerLine: mathx.Interval{
			Lower: angleCI.Lower + math.Asin(mathx.ClampUnit(offsetCI.Lower/maxRange)),
			Upper: angleCI.Lower + math.Asin(mathx.ClampUnit(offsetCI.Lower/minRange)),
		},
		UpperLine: mathx.Interval{
			Lower: angleCI.Upper + math.Asin(mathx.ClampUnit(offsetCI.Upper/maxRange)),
			Upper: angleCI.Upper + math.Asin(mathx.ClampUnit(offsetCI.Upper/minRange)),
		},
	}
}
