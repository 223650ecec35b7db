package horizontal

import (
	"math"
	"testing"
)

func TestComputeDiffToIdealSawtooth(t *testing.T) {
	const resolution = 8
	thetaStep := 2 * math.Pi / float64(resolution)

	// Azimuths exactly on the grid have zero residual.
	thetas := []float64{0, thetaStep, 3 * thetaStep}
	for i, d := range computeDiffToIdeal(thetas, resolution, false) {
		if math.Abs(d) > 1e-12 {
			t.Errorf("on-grid residual[%d] = %v, want 0", i, d)
		}
	}

	// A quarter-step shift shows up directly.
	shifted := []float64{thetaStep * 0.25, thetaStep * 1.25}
	for i, d := range computeDiffToIdeal(shifted, resolution, false) {
		if math.Abs(d-thetaStep*0.25) > 1e-12 {
			t.Errorf("shifted residual[%d] = %v, want %v", i, d, thetaStep*0.25)
		}
	}
}

func TestComputeDiffToIdealReconstructRemovesJumps(t *testing.T) {
	const resolution = 16
	thetaStep := 2 * math.Pi / float64(resolution)

	// A slow drift across the sawtooth wrap: the raw residual jumps by a
	// full step, the reconstructed signal stays continuous.
	var thetas []float64
	for i := 0; i < 20; i++ {
		thetas = append(thetas, float64(i)*thetaStep+0.08*thetaStep*float64(i))
	}

	reconstructed := computeDiffToIdeal(thetas, resolution, true)
	for i := 1; i < len(reconstructed); i++ {
		if math.Abs(reconstructed[i]-reconstructed[i-1]) >= thetaStep/2 {
			t.Fatalf("reconstructed signal jumps at %d: %v -> %v", i, reconstructed[i-1], reconstructed[i])
		}
	}
}

func TestCircularMeanIntercept(t *testing.T) {
	const period = 0.1

	// Residuals clustered around 0.02 with no wrap.
	plain := []float64{0.018, 0.02, 0.022}
	if got := circularMeanIntercept(plain, period); math.Abs(got-0.02) > 1e-3 {
		t.Errorf("plain mean = %v, want ~0.02", got)
	}

	// Residuals straddling the wrap at 0/period: a plain mean would land
	// near period/2, the circular mean stays at the cluster.
	wrapped := []float64{period - 0.002, 0.002, period - 0.001, 0.001}
	got := circularMeanIntercept(wrapped, period)
	distToWrap := math.Min(got, period-got)
	if distToWrap > 0.005 {
		t.Errorf("wrapped mean = %v, want near the 0/period boundary", got)
	}
}

func TestPeriodicFitRecoversLine(t *testing.T) {
	const (
		period = 0.01
		slope  = 0.03
		icept  = 0.004
	)

	// y spans several lines of the periodic family once folded.
	var x, y []float64
	for i := 0; i < 200; i++ {
		xi := 0.03 + 0.17*float64(i)/200
		x = append(x, xi)
		y = append(y, slope*xi+icept)
	}

	// Fold the input as the estimator sees it (residual against the grid).
	folded := make([]float64, len(y))
	for i, v := range y {
		folded[i] = v - math.Round(v/period)*period
	}

	fit := periodicFit(x, folded, period, 0.8*slope)
	if math.Abs(fit.Slope-slope) > 1e-6 {
		t.Errorf("slope = %v, want %v", fit.Slope, slope)
	}

	interceptErr := math.Abs(math.Mod(fit.Intercept-icept, period))
	interceptErr = math.Min(interceptErr, period-interceptErr)
	if interceptErr > 1e-6 {
		t.Errorf("intercept = %v, want %v modulo period", fit.Intercept, icept)
	}
	if fit.MSE > 1e-12 {
		t.Errorf("mse = %v, want ~0 on noise-free data", fit.MSE)
	}
}

func TestSegmentedMedianRegressorRobustToOutlierSegment(t *testing.T) {
	reg := segmentedMedianRegressor{
		thresholdX:   0.05,
		thresholdY:   10,
		maxSlope:     1.0,
		interceptMod: 1.0,
	}

	// Three continuous segments with slope 0.3, one small rogue segment
	// with a wild slope; the weighted median sticks with the majority.
	var x, y []float64
	appendSegment := func(x0 float64, n int, slope float64) {
		for i := 0; i < n; i++ {
			xi := x0 + 0.01*float64(i)
			x = append(x, xi)
			y = append(y, slope*xi)
		}
	}
	appendSegment(0.0, 20, 0.3)
	appendSegment(1.0, 20, 0.3)
	appendSegment(2.0, 20, 0.3)
	appendSegment(3.0, 5, 0.9)

	got := reg.fit(x, y)
	if math.Abs(got.Slope-0.3) > 1e-9 {
		t.Errorf("slope = %v, want the median 0.3", got.Slope)
	}
}

func TestSegmentedMedianRegressorNoSegments(t *testing.T) {
	reg := segmentedMedianRegressor{thresholdX: 1e-9, thresholdY: 1e-9, maxSlope: 1, interceptMod: 1}

	// Every gap exceeds the thresholds: no segment reaches three points.
	got := reg.fit([]float64{0, 1, 2, 3}, []float64{0, 1, 2, 3})
	if got.Slope != 0 || got.Intercept != 0 {
		t.Errorf("degenerate fit = %+v, want zero line", got)
	}
}
