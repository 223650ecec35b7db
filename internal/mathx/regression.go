package mathx

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LRResult holds an ordinary least-squares line fit. MSE is NaN unless the
// fit was asked to compute it.
type LRResult struct {
	Slope     float64
	Intercept float64
	MSE       float64
}

// WLSResult holds a weighted least-squares line fit with 95% Student-t
// confidence intervals and the log-likelihood of the weighted model.
type WLSResult struct {
	Slope         float64
	Intercept     float64
	SlopeVar      float64
	InterceptVar  float64
	LogLikelihood float64
	SlopeCI       Interval
	InterceptCI   Interval
}

// LinearFit fits y = slope*x + intercept by ordinary least squares.
// When computeMSE is set, the mean squared residual is returned as well;
// otherwise MSE is NaN.
func LinearFit(x, y []float64, computeMSE bool) LRResult {
	n := float64(len(x))
	var sx, sy, sxx, sxy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
	}

	delta := n*sxx - sx*sx
	slope := (n*sxy - sx*sy) / delta
	intercept := (sxx*sy - sx*sxy) / delta

	mse := math.NaN()
	if computeMSE {
		var ssr float64
		for i := range x {
			r := y[i] - (slope*x[i] + intercept)
			ssr += r * r
		}
		mse = ssr / n
	}

	return LRResult{Slope: slope, Intercept: intercept, MSE: mse}
}

// WLSBoundsFit fits y = slope*x + intercept by weighted least squares with
// weights 1/bounds², where bounds[i] is a per-sample error bound. It returns
// parameter variances, 95% Student-t confidence intervals (df = n-2) and the
// log-likelihood of the weighted residuals.
func WLSBoundsFit(x, y, bounds []float64) WLSResult {
	n := len(x)

	var s, sx, sy, sxx, sxy float64
	var logWeightSum float64
	weights := make([]float64, n)
	for i := range x {
		w := 1 / (bounds[i] * bounds[i])
		weights[i] = w
		s += w
		sx += w * x[i]
		sy += w * y[i]
		sxx += w * x[i] * x[i]
		sxy += w * x[i] * y[i]
		logWeightSum += math.Log(w)
	}

	delta := s*sxx - sx*sx
	slope := (s*sxy - sx*sy) / delta
	intercept := (sxx*sy - sx*sxy) / delta

	var ssr float64
	for i := range x {
		r := y[i] - (slope*x[i] + intercept)
		ssr += weights[i] * r * r
	}
	sigma2 := ssr / float64(n-2)

	slopeVar := sigma2 * s / delta
	interceptVar := sigma2 * sxx / delta

	halfN := float64(n) / 2
	logL := -math.Log(ssr) * halfN
	logL -= (1 + math.Log(math.Pi/halfN)) * halfN
	logL += 0.5 * logWeightSum

	t := tCritical95(n - 2)
	slopeSE := math.Sqrt(slopeVar)
	interceptSE := math.Sqrt(interceptVar)

	return WLSResult{
		Slope:         slope,
		Intercept:     intercept,
		SlopeVar:      slopeVar,
		InterceptVar:  interceptVar,
		LogLikelihood: logL,
		SlopeCI:       Interval{Lower: slope - t*slopeSE, Upper: slope + t*slopeSE},
		InterceptCI:   Interval{Lower: intercept - t*interceptSE, Upper: intercept + t*interceptSE},
	}
}

// tCritical95 returns the two-sided 95% Student-t critical value for the
// given degrees of freedom.
func tCritical95(df int) float64 {
	if df < 1 {
		df = 1
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return dist.Quantile(0.975)
}
