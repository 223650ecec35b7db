package vertical

import (
	"math"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/mathx"
	"github.com/banshee-data/lri/internal/monitoring"
)

// Refit margins are floored to keep the band from collapsing to zero width
// when a fit is very confident; the offset floor also absorbs accumulator
// quantization.
const (
	minOffsetMargin = 5e-4
	minAngleMargin  = 1e-6
	nearFieldRange  = 2.0
)

type fitConvergenceState int

const (
	fitInitial fitConvergenceState = iota
	fitConverged
	fitConfirmed
)

// fitOutcome is the result of the iterative WLS fit over a candidate band.
type fitOutcome struct {
	fit       mathx.WLSResult
	limits    limits
	success   bool
	ciTooWide bool
}

// estimation is a fully-formed scanline candidate, fit or heuristic.
type estimation struct {
	heuristic    bool
	uncertainty  float64
	offset       mathx.ValueCI
	angle        mathx.ValueCI
	limits       limits
	dependencies []int
}

// tryFitScanline runs the iterative weighted fit: fit the band, recompute
// the error bounds at the fitted offset, re-derive the band from the CI
// widths, and repeat until the band membership is stable two iterations in a
// row. A fit whose offset CI is wider than max(0.05*|offset|, 1e-2) aborts
// with ciTooWide so the caller can fall back to the heuristic.
func tryFitScanline(points *geom.PointArray, seedBounds errorBounds, seed limits, cfg Config) fitOutcome {
	current := seed
	currentBounds := seedBounds

	var out fitOutcome
	state := fitInitial

	for attempt := 0; attempt < cfg.MaxFitAttempts; attempt++ {
		if len(current.Indices) <= 2 {
			break
		}

		// On the first attempt, suppress near-field geometric non-linearity
		// by restricting to ranges >= 2 when enough points remain.
		fitIndices := current.Indices
		if state == fitInitial {
			far := make([]int, 0, len(fitIndices))
			for _, i := range fitIndices {
				if points.Range[i] >= nearFieldRange {
					far = append(far, i)
				}
			}
			if len(far) > 2 {
				fitIndices = far
			}
		}

		xs := make([]float64, len(fitIndices))
		ys := make([]float64, len(fitIndices))
		bs := make([]float64, len(fitIndices))
		for k, i := range fitIndices {
			xs[k] = points.InvRange[i]
			ys[k] = points.Phi[i]
			bs[k] = currentBounds.Final[i]
		}

		fit := mathx.WLSBoundsFit(xs, ys, bs)
		out.fit = fit

		monitoring.Logf("vertical: fit attempt %d offset=%.6f angle=%.6f over %d points (state %d)",
			attempt, fit.Slope, fit.Intercept, len(fitIndices), state)

		if fit.SlopeCI.Diff() > math.Max(0.05*math.Abs(fit.Slope), 1e-2) {
			monitoring.Logf("vertical: offset CI too wide: %.6f", fit.SlopeCI.Diff())
			out.ciTooWide = true
			break
		}

		currentBounds = computeErrorBounds(points, fit.Slope)

		m := margin{
			offsetUpper: math.Max(fit.SlopeCI.Upper-fit.Slope, minOffsetMargin),
			offsetLower: math.Max(fit.Slope-fit.SlopeCI.Lower, minOffsetMargin),
			angleUpper:  math.Max(fit.InterceptCI.Upper-fit.Intercept, minAngleMargin),
			angleLower:  math.Max(fit.Intercept-fit.InterceptCI.Lower, minAngleMargin),
		}

		meanInvRange := mathx.Mean(xs)
		newLimits := computeScanlineLimits(points, currentBounds.Final, fit.Slope, fit.Intercept, m, meanInvRange)

		if newLimits.sameMask(&current) {
			if state == fitConverged {
				state = fitConfirmed
				current = newLimits
				break
			}
			state = fitConverged
		}

		current = newLimits
	}

	out.success = state == fitConfirmed
	out.limits = current
	return out
}

// estimateScanline turns a seed band into a candidate: a converged WLS fit
// when possible, the support-scanline heuristic when the CI is too wide, or
// nothing when the band is degenerate.
func estimateScanline(points *geom.PointArray, pool *Pool, seedBounds errorBounds, seed limits, cfg Config) *estimation {
	if len(seed.Indices) == 0 {
		return nil
	}

	// One or two points cannot support a fit at all; they go straight to
	// the heuristic.
	requiresHeuristic := len(seed.Indices) <= 2
	if len(seed.Indices) > 2 {
		outcome := tryFitScanline(points, seedBounds, seed, cfg)
		requiresHeuristic = outcome.ciTooWide

		if outcome.success && !requiresHeuristic {
			return &estimation{
				heuristic:   false,
				uncertainty: -outcome.fit.LogLikelihood,
				offset:      mathx.ValueCI{Value: outcome.fit.Slope, CI: outcome.fit.SlopeCI},
				angle:       mathx.ValueCI{Value: outcome.fit.Intercept, CI: outcome.fit.InterceptCI},
				limits:      outcome.limits,
			}
		}
	}

	if requiresHeuristic {
		return estimateHeuristicScanline(points, pool, seed)
	}

	return nil
}
