package horizontal

import (
	"math"

	"github.com/banshee-data/lri/internal/mathx"
)

// segmentedMedianRegressor seeds the periodic fit. It splits the signal at
// discontinuities, runs an ordinary regression on every segment of at least
// three points, and takes the size-weighted median of the segment slopes and
// intercepts. The median makes the seed robust against segments that landed
// on the wrong line of the periodic family.
type segmentedMedianRegressor struct {
	thresholdX   float64
	thresholdY   float64
	maxSlope     float64
	interceptMod float64
}

// fit returns the weighted-median line of the per-segment fits, or a zero
// line when no segment survives.
func (r segmentedMedianRegressor) fit(x, y []float64) mathx.LRResult {
	var slopes, intercepts []float64
	var weights []int

	process := func(start, end int) {
		size := end - start
		if size <= 2 {
			return
		}

		lr := mathx.LinearFit(x[start:end], y[start:end], false)
		if !isFinite(lr.Slope) || math.Abs(lr.Slope) > r.maxSlope {
			return
		}

		slopes = append(slopes, lr.Slope)
		intercepts = append(intercepts, mathx.PositiveFmod(lr.Intercept, r.interceptMod))
		weights = append(weights, size)
	}

	n := len(x)
	blockStart := 0
	for i := 1; i < n; i++ {
		continuous := math.Abs(x[i]-x[i-1]) < r.thresholdX && math.Abs(y[i]-y[i-1]) < r.thresholdY
		if !continuous {
			process(blockStart+1, i)
			blockStart = i
		}
	}
	process(blockStart+1, n)

	if len(slopes) == 0 {
		return mathx.LRResult{MSE: math.NaN()}
	}

	return mathx.LRResult{
		Slope:     mathx.WeightedMedian(slopes, weights),
		Intercept: mathx.WeightedMedian(intercepts, weights),
		MSE:       math.NaN(),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
