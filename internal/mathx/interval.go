package mathx

// Interval is a closed numeric interval [Lower, Upper].
type Interval struct {
	Lower float64
	Upper float64
}

// Diff returns the width of the interval.
func (iv Interval) Diff() float64 { return iv.Upper - iv.Lower }

// AnyContained reports whether any part of other overlaps this interval.
func (iv Interval) AnyContained(other Interval) bool {
	return iv.Lower <= other.Upper && other.Lower <= iv.Upper
}

// ClampBoth clamps both bounds to [minValue, maxValue].
func (iv *Interval) ClampBoth(minValue, maxValue float64) {
	iv.Lower = min(max(iv.Lower, minValue), maxValue)
	iv.Upper = min(max(iv.Upper, minValue), maxValue)
}

// ValueCI is a value with an associated confidence interval.
type ValueCI struct {
	Value float64
	CI    Interval
}
