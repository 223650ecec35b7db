package horizontal

import (
	"math"
	"sort"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/mathx"
	"github.com/banshee-data/lri/internal/monitoring"
)

// Default estimation parameters.
const (
	DefaultMinPointsPerScanline = 16
	DefaultMaxResolution        = 10000
	DefaultMaxOffset            = 0.5

	// invRangesSegmentThreshold is the 1/rangeXy gap that splits the signal
	// into segments for the median slope seeding.
	invRangesSegmentThreshold = 1e-2

	// offsetEqualityEps deduplicates borrowed offsets in the heuristic.
	offsetEqualityEps = 1e-6
)

// Config holds the tunable parameters of the horizontal estimator.
type Config struct {
	MinPointsPerScanline int
	MaxResolution        int
	MaxOffset            float64
}

// DefaultConfig returns the standard parameter set.
func DefaultConfig() Config {
	return Config{
		MinPointsPerScanline: DefaultMinPointsPerScanline,
		MaxResolution:        DefaultMaxResolution,
		MaxOffset:            DefaultMaxOffset,
	}
}

// Scanline is the horizontal result for one vertical scanline.
type Scanline struct {
	Resolution  int
	Offset      float64
	ThetaOffset float64
	Heuristic   bool
}

// candidate scores one (resolution, offset, thetaOffset) triple.
type candidate struct {
	resolution  int
	offset      float64
	thetaOffset float64
	loss        float64
}

// Estimate fits the horizontal intrinsics of every scanline. Scanlines with
// too few points for a trustworthy fit borrow their parameters from the
// fitted ones (heuristic assignment); if nothing could be fit they fall back
// to a degenerate per-scanline resolution.
func Estimate(points *geom.PointArray, assignments []int, scanlineCount int, cfg Config) []Scanline {
	scanlines := make([]Scanline, scanlineCount)
	array := NewScanlineArray(points, assignments, scanlineCount)

	var heuristicIdxs []int
	for idx := 0; idx < scanlineCount; idx++ {
		if fitted := estimateScanline(array, idx, cfg); fitted != nil {
			scanlines[idx] = *fitted
		} else {
			heuristicIdxs = append(heuristicIdxs, idx)
			monitoring.Logf("horizontal: scanline %d will be estimated heuristically", idx)
		}
	}

	if len(heuristicIdxs) > 0 {
		assignHeuristicScanlines(scanlines, heuristicIdxs, array)
	}

	return scanlines
}

// estimateScanline fits one scanline, or returns nil when it has too few
// points and must be assigned heuristically.
func estimateScanline(array *ScanlineArray, idx int, cfg Config) *Scanline {
	size := array.Size(idx)
	if size < cfg.MinPointsPerScanline {
		monitoring.Logf("horizontal: scanline %d has %d points, below the fit minimum", idx, size)
		return nil
	}

	best, ok := findOptimalParameters(array, idx, cfg)
	if !ok {
		monitoring.Logf("horizontal: optimization failed for scanline %d", idx)
		return nil
	}

	monitoring.Logf("horizontal: scanline %d resolution=%d offset=%.6f thetaOffset=%.6f points=%d loss=%g",
		idx, best.resolution, best.offset, best.thetaOffset, size, best.loss)

	return &Scanline{
		Resolution:  best.resolution,
		Offset:      best.offset,
		ThetaOffset: best.thetaOffset,
		Heuristic:   false,
	}
}

// findOptimalParameters scans every candidate resolution from the point
// count up to the cap and keeps the joint fit with the lowest loss.
func findOptimalParameters(array *ScanlineArray, idx int, cfg Config) (candidate, bool) {
	size := array.Size(idx)

	var best candidate
	found := false

	for resolution := size; resolution <= cfg.MaxResolution; resolution++ {
		c := optimizeCandidateResolution(array, idx, resolution, cfg)

		if math.Abs(c.offset) > cfg.MaxOffset || !isFinite(c.offset) {
			continue
		}

		if !found || c.loss < best.loss {
			best = c
			found = true
		}
	}

	return best, found
}

// optimizeCandidateResolution evaluates one resolution: seed the slope by
// segmented median over the reconstructed residual, fit the periodic family,
// and score by MSE scaled with resolution squared (denser grids must earn
// their extra lines).
func optimizeCandidateResolution(array *ScanlineArray, idx, resolution int, cfg Config) candidate {
	thetaStep := 2 * math.Pi / float64(resolution)
	invRangesXy := array.InvRangesXy(idx)
	thetas := array.Thetas(idx)

	diffToIdeal := computeDiffToIdeal(thetas, resolution, false)
	diffToIdealReconstructed := computeDiffToIdeal(thetas, resolution, true)

	seeder := segmentedMedianRegressor{
		thresholdX:   invRangesSegmentThreshold,
		thresholdY:   thetaStep / 4,
		maxSlope:     cfg.MaxOffset,
		interceptMod: thetaStep,
	}
	guess := seeder.fit(invRangesXy, diffToIdealReconstructed)

	fit := periodicFit(invRangesXy, diffToIdeal, thetaStep, guess.Slope)

	return candidate{
		resolution:  resolution,
		offset:      fit.Slope,
		thetaOffset: mathx.PositiveFmod(fit.Intercept, thetaStep),
		loss:        fit.MSE * float64(resolution) * float64(resolution),
	}
}

// assignHeuristicScanlines fills the unfit scanlines from the fitted ones:
// every combination of a borrowed resolution and a borrowed offset is scored
// by how well it aligns the scanline's azimuths to the firing grid, and the
// best combination wins. With nothing to borrow from, the scanline falls
// back to one firing per point.
func assignHeuristicScanlines(scanlines []Scanline, heuristicIdxs []int, array *ScanlineArray) {
	resolutions, offsets := collectFittedCandidates(scanlines, heuristicIdxs)

	for _, idx := range heuristicIdxs {
		if len(resolutions) == 0 || len(offsets) == 0 {
			scanlines[idx] = Scanline{Resolution: array.Size(idx), Heuristic: true}
			monitoring.Logf("horizontal: scanline %d falls back to resolution %d", idx, array.Size(idx))
			continue
		}

		best := candidate{loss: math.Inf(1)}
		for _, resolution := range resolutions {
			for _, offset := range offsets {
				c := heuristicAlignment(array.Thetas(idx), array.RangesXy(idx), resolution, offset)
				if c.loss < best.loss {
					best = c
				}
			}
		}

		scanlines[idx] = Scanline{
			Resolution:  best.resolution,
			Offset:      best.offset,
			ThetaOffset: best.thetaOffset,
			Heuristic:   true,
		}

		monitoring.Logf("horizontal: scanline %d borrowed resolution=%d offset=%.6f thetaOffset=%.6f",
			idx, best.resolution, best.offset, best.thetaOffset)
	}
}

// collectFittedCandidates gathers the distinct resolutions and offsets of
// the non-heuristic scanlines, sorted so ties in the heuristic scoring break
// the same way on every run. Offsets closer than offsetEqualityEps count as
// equal.
func collectFittedCandidates(scanlines []Scanline, heuristicIdxs []int) ([]int, []float64) {
	skip := make(map[int]bool, len(heuristicIdxs))
	for _, idx := range heuristicIdxs {
		skip[idx] = true
	}

	resolutionSet := make(map[int]bool)
	var offsets []float64

	for i, s := range scanlines {
		if skip[i] {
			continue
		}

		resolutionSet[s.Resolution] = true

		distinct := true
		for _, o := range offsets {
			if math.Abs(s.Offset-o) <= offsetEqualityEps {
				distinct = false
				break
			}
		}
		if distinct {
			offsets = append(offsets, s.Offset)
		}
	}

	resolutions := make([]int, 0, len(resolutionSet))
	for r := range resolutionSet {
		resolutions = append(resolutions, r)
	}
	sort.Ints(resolutions)
	sort.Float64s(offsets)

	return resolutions, offsets
}

// heuristicAlignment scores a borrowed (resolution, offset) pair on a
// scanline: correct the azimuths by the offset, measure their spread around
// the firing grid, and scale by the resolution.
func heuristicAlignment(thetas, rangesXy []float64, resolution int, offset float64) candidate {
	thetaStep := 2 * math.Pi / float64(resolution)

	diff := make([]float64, len(thetas))
	for i := range thetas {
		corrected := mathx.PositiveFmod(thetas[i]-offset/rangesXy[i], 2*math.Pi)
		diff[i] = corrected - math.Floor(corrected/thetaStep)*thetaStep
	}

	thetaOffset := mathx.Mean(diff)

	var spread float64
	for _, d := range diff {
		spread += math.Abs(d - thetaOffset)
	}
	spread /= float64(len(diff))

	return candidate{
		resolution:  resolution,
		offset:      offset,
		thetaOffset: thetaOffset,
		loss:        spread * float64(resolution),
	}
}
