package mathx

import (
	"math"
	"testing"
)

func TestLinearFitExactLine(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 2.5*xi - 1.0
	}

	res := LinearFit(x, y, true)
	if math.Abs(res.Slope-2.5) > 1e-12 {
		t.Errorf("slope = %v, want 2.5", res.Slope)
	}
	if math.Abs(res.Intercept+1.0) > 1e-12 {
		t.Errorf("intercept = %v, want -1", res.Intercept)
	}
	if res.MSE > 1e-20 {
		t.Errorf("mse = %v, want ~0", res.MSE)
	}
}

func TestLinearFitNoMSE(t *testing.T) {
	res := LinearFit([]float64{0, 1, 2}, []float64{0, 1, 2}, false)
	if !math.IsNaN(res.MSE) {
		t.Errorf("mse = %v, want NaN when not requested", res.MSE)
	}
}

func TestWLSBoundsFitRecoversLine(t *testing.T) {
	// Noise-free data: the fit must recover the parameters exactly and the
	// CI must bracket them.
	x := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	y := make([]float64, len(x))
	bounds := make([]float64, len(x))
	for i, xi := range x {
		y[i] = -0.03*xi + 0.2
		bounds[i] = 1e-4
	}
	// Break exact collinearity slightly so the residual variance is nonzero.
	y[3] += 1e-9

	res := WLSBoundsFit(x, y, bounds)
	if math.Abs(res.Slope+0.03) > 1e-6 {
		t.Errorf("slope = %v, want -0.03", res.Slope)
	}
	if math.Abs(res.Intercept-0.2) > 1e-6 {
		t.Errorf("intercept = %v, want 0.2", res.Intercept)
	}
	if !(res.SlopeCI.Lower <= res.Slope && res.Slope <= res.SlopeCI.Upper) {
		t.Errorf("slope CI %+v does not contain slope %v", res.SlopeCI, res.Slope)
	}
	if !(res.InterceptCI.Lower <= res.Intercept && res.Intercept <= res.InterceptCI.Upper) {
		t.Errorf("intercept CI %+v does not contain intercept %v", res.InterceptCI, res.Intercept)
	}
}

func TestWLSBoundsFitWeighting(t *testing.T) {
	// One wildly-off sample with a huge bound must barely move the fit.
	x := []float64{0, 1, 2, 3, 4, 5}
	y := []float64{0, 1, 2, 3, 4, 100}
	bounds := []float64{1e-3, 1e-3, 1e-3, 1e-3, 1e-3, 1e3}

	res := WLSBoundsFit(x, y, bounds)
	if math.Abs(res.Slope-1) > 1e-3 {
		t.Errorf("slope = %v, want ~1 (outlier downweighted)", res.Slope)
	}
}

func TestTCritical95(t *testing.T) {
	// Large df approaches the normal quantile 1.96; small df is wider.
	large := tCritical95(1000)
	if math.Abs(large-1.96) > 0.01 {
		t.Errorf("t(1000) = %v, want ~1.96", large)
	}
	small := tCritical95(3)
	if small < 3.0 || small > 3.4 {
		t.Errorf("t(3) = %v, want ~3.18", small)
	}
}
