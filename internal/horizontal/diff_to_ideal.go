package horizontal

import (
	"math"

	"github.com/banshee-data/lri/internal/mathx"
)

// computeDiffToIdeal returns the sawtooth residual of each azimuth against
// the ideal firing grid of the given resolution: theta minus the closest
// multiple of thetaStep, in (-thetaStep/2, thetaStep/2].
//
// With reconstruct set, the 2π wrap jumps are removed: wherever the residual
// difference between consecutive points exceeds half a step, one step is
// subtracted in the jump direction, and the cleaned differences are summed
// back into a continuous signal starting at 0. The reconstructed variant is
// smoother and suits the segmented slope seeding.
func computeDiffToIdeal(thetas []float64, resolution int, reconstruct bool) []float64 {
	thetaStep := 2 * math.Pi / float64(resolution)

	diff := make([]float64, len(thetas))
	for i, th := range thetas {
		diff[i] = th - math.Round(th/thetaStep)*thetaStep
	}

	if !reconstruct || len(diff) < 2 {
		return diff
	}

	dd := mathx.Diff(diff)
	for i, d := range dd {
		if math.Abs(d) >= thetaStep/2 {
			if d > 0 {
				dd[i] = d - thetaStep
			} else if d < 0 {
				dd[i] = d + thetaStep
			}
		}
	}

	diff[0] = 0
	for i, d := range dd {
		diff[i+1] = diff[i] + d
	}

	return diff
}
