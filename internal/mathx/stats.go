package mathx

import (
	"math"
	"sort"
)

// WeightedMedian returns the weighted median of values. The median is the
// smallest value whose cumulative weight reaches half of the total weight.
// Returns 0 for empty input.
func WeightedMedian(values []float64, weights []int) float64 {
	if len(values) == 0 {
		return 0
	}

	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	var total float64
	for _, w := range weights {
		total += float64(w)
	}

	var cum float64
	for _, i := range idx {
		cum += float64(weights[i])
		if cum >= total/2 {
			return values[i]
		}
	}

	return values[idx[len(idx)-1]]
}

// Diff returns the first differences of xs: out[i] = xs[i+1] - xs[i].
func Diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := range out {
		out[i] = xs[i+1] - xs[i]
	}
	return out
}

// PositiveFmod returns x mod m mapped into [0, m).
func PositiveFmod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// Mean returns the arithmetic mean of xs, or 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// ClampUnit clamps v to [-1, 1], the valid domain of asin.
func ClampUnit(v float64) float64 {
	return min(max(v, -1), 1)
}
