package horizontal

import (
	"math"

	"github.com/banshee-data/lri/internal/mathx"
)

// periodicResiduals folds the residuals of y against a candidate line into
// one period: residual minus its nearest period multiple, with the multiple
// (the line index within the periodic family) kept for unfolding.
type periodicResiduals struct {
	residuals []float64
	lineIdx   []int
}

func computePeriodicResiduals(x, y []float64, period, slope, intercept float64, out *periodicResiduals) {
	n := len(x)
	if cap(out.residuals) < n {
		out.residuals = make([]float64, n)
		out.lineIdx = make([]int, n)
	}
	out.residuals = out.residuals[:n]
	out.lineIdx = out.lineIdx[:n]

	for i := range x {
		r := y[i] - (slope*x[i] + intercept)
		k := 0
		if isFinite(r) {
			k = int(math.Round(r / period))
		}
		out.residuals[i] = r - float64(k)*period
		out.lineIdx[i] = k
	}
}

// circularMeanIntercept averages the residuals as angles on the unit circle
// and maps the mean back to [0, period). The circular mean is immune to the
// wrap at the period boundary that would bias a plain mean.
func circularMeanIntercept(residuals []float64, period float64) float64 {
	var sinSum, cosSum float64
	for _, r := range residuals {
		rm := mathx.PositiveFmod(r, period)
		idx := int(rm * mathx.TrigTableSize / period)
		if idx > mathx.TrigTableSize-1 {
			idx = mathx.TrigTableSize - 1
		}
		sinSum += mathx.SinIndex(idx)
		cosSum += mathx.CosIndex(idx)
	}

	n := float64(len(residuals))
	mean := math.Atan2(sinSum/n, cosSum/n)
	if mean < 0 {
		mean += 2 * math.Pi
	}
	return period * mean / (2 * math.Pi)
}

// periodicFit fits y = slope*x + intercept modulo period. The slope guess
// seeds the fold; the intercept comes from the circular mean; the slope is
// then refined by unfolding the periodic family and regressing on whichever
// of the first half, second half or full signal explains it best.
func periodicFit(x, y []float64, period, slopeGuess float64) mathx.LRResult {
	var folded periodicResiduals
	computePeriodicResiduals(x, y, period, slopeGuess, 0, &folded)

	intercept := circularMeanIntercept(folded.residuals, period)
	computePeriodicResiduals(x, y, period, slopeGuess, intercept, &folded)

	return refinePeriodicFit(x, y, &folded, period)
}

func refinePeriodicFit(x, y []float64, folded *periodicResiduals, period float64) mathx.LRResult {
	n := len(x)
	half := n / 2

	shifted := make([]float64, n)
	unfold := func() {
		for i := range y {
			shifted[i] = y[i] - float64(folded.lineIdx[i])*period
		}
	}
	unfold()

	fitFirst := mathx.LinearFit(x[:half], shifted[:half], true)
	fitLast := mathx.LinearFit(x[n-half:], shifted[n-half:], true)
	fitAll := mathx.LinearFit(x, shifted, true)

	opt := fitFirst
	if fitLast.MSE < fitFirst.MSE {
		opt = fitLast
	}

	computePeriodicResiduals(x, y, period, opt.Slope, opt.Intercept, folded)
	unfold()
	fitFinal := mathx.LinearFit(x, shifted, true)

	if fitAll.MSE < fitFinal.MSE {
		return fitAll
	}
	return fitFinal
}
