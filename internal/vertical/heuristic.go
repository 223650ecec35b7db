package vertical

import (
	"math"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/mathx"
	"github.com/banshee-data/lri/internal/monitoring"
)

// estimateHeuristicScanline builds a candidate for a band whose fit CI was
// too wide. The offset is borrowed from the closest accepted scanlines above
// and below the band's mean elevation; the angle follows from the band
// itself. The candidate carries infinite uncertainty and depends on its
// support scanlines: if either support is later retracted, so is this one.
func estimateHeuristicScanline(points *geom.PointArray, pool *Pool, seed limits) *estimation {
	monitoring.Logf("vertical: heuristic fitting over %d points", len(seed.Indices))

	invRanges := make([]float64, len(seed.Indices))
	phis := make([]float64, len(seed.Indices))
	for k, i := range seed.Indices {
		invRanges[k] = points.InvRange[i]
		phis[k] = points.Phi[i]
	}

	invRangesMean := mathx.Mean(invRanges)
	phisMean := mathx.Mean(phis)

	supports := findSupportScanlines(pool, invRangesMean, phisMean)
	if len(supports) == 0 {
		return nil
	}

	offset := computeHeuristicOffset(pool, supports)
	offset.CI.ClampBoth(-points.MinRange, points.MinRange)

	angle := computeHeuristicAngle(invRanges, phis, offset)

	monitoring.Logf("vertical: heuristic offset=%.6f ci=[%.6f, %.6f] angle=%.6f ci=[%.6f, %.6f]",
		offset.Value, offset.CI.Lower, offset.CI.Upper, angle.Value, angle.CI.Lower, angle.CI.Upper)

	m := margin{
		offsetLower: math.Max(offset.CI.Diff()/2, pool.accum.OffsetStep()),
		offsetUpper: math.Max(offset.CI.Diff()/2, pool.accum.OffsetStep()),
		angleLower:  math.Max(angle.CI.Diff()/2, pool.accum.AngleStep()),
		angleUpper:  math.Max(angle.CI.Diff()/2, pool.accum.AngleStep()),
	}

	bounds := computeErrorBounds(points, offset.Value)
	heuristicLimits := computeScanlineLimits(points, bounds.Final, offset.Value, angle.Value, m, invRangesMean)

	if len(heuristicLimits.Indices) == 0 {
		return nil
	}

	return &estimation{
		heuristic:    true,
		uncertainty:  math.Inf(1),
		offset:       offset,
		angle:        angle,
		limits:       heuristicLimits,
		dependencies: supports,
	}
}

// findSupportScanlines returns the ids of the accepted scanlines closest
// above and below the band elevation phisMean, measured at the band's mean
// reciprocal range. Zero, one or two ids, ascending.
func findSupportScanlines(pool *Pool, invRangesMean, phisMean float64) []int {
	topID, bottomID := -1, -1
	topDist := math.Inf(1)
	bottomDist := math.Inf(1)

	pool.ForEachScanline(func(s *Scanline) {
		scanlinePhi := math.Asin(mathx.ClampUnit(s.Offset.Value*invRangesMean)) + s.Angle.Value

		switch {
		case scanlinePhi > phisMean:
			if d := scanlinePhi - phisMean; d < topDist {
				topID, topDist = s.ID, d
			}
		case scanlinePhi < phisMean:
			if d := phisMean - scanlinePhi; d < bottomDist {
				bottomID, bottomDist = s.ID, d
			}
		}
	})

	var supports []int
	if bottomID >= 0 {
		supports = append(supports, bottomID)
	}
	if topID >= 0 && topID != bottomID {
		supports = append(supports, topID)
	}
	return supports
}

// computeHeuristicOffset averages the support offsets; the CI width is the
// widest support CI.
func computeHeuristicOffset(pool *Pool, supports []int) mathx.ValueCI {
	var meanOffset, maxDiff float64
	for _, id := range supports {
		s := pool.ScanlineByID(id)
		meanOffset += s.Offset.Value / float64(len(supports))
		if d := s.Offset.CI.Diff(); d > maxDiff {
			maxDiff = d
		}
	}
	return mathx.ValueCI{
		Value: meanOffset,
		CI:    mathx.Interval{Lower: meanOffset - maxDiff/2, Upper: meanOffset + maxDiff/2},
	}
}

// computeHeuristicAngle derives the angle by removing the borrowed offset's
// elevation correction from the band, once per CI corner of the offset.
func computeHeuristicAngle(invRanges, phis []float64, offset mathx.ValueCI) mathx.ValueCI {
	angleAt := func(off float64) float64 {
		var sum float64
		for k := range phis {
			sum += phis[k] - math.Asin(mathx.ClampUnit(off*invRanges[k]))
		}
		return sum / float64(len(phis))
	}

	value := angleAt(offset.Value)
	lo := angleAt(offset.CI.Lower)
	hi := angleAt(offset.CI.Upper)

	return mathx.ValueCI{
		Value: value,
		CI:    mathx.Interval{Lower: math.Min(lo, hi), Upper: math.Max(lo, hi)},
	}
}
