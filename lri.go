package lri

import (
	"fmt"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/horizontal"
	"github.com/banshee-data/lri/internal/vertical"
)

// EstimateIntrinsics recovers the sensor geometry from a point cloud using
// the default parameters.
func EstimateIntrinsics(cloud PointCloud) (Intrinsics, error) {
	return EstimateIntrinsicsWithParams(cloud, DefaultParams())
}

// EstimateIntrinsicsWithParams recovers the sensor geometry from a point
// cloud. The call runs to completion on the calling goroutine; concurrent
// estimations are independent.
func EstimateIntrinsicsWithParams(cloud PointCloud, params Params) (Intrinsics, error) {
	detailed, err := EstimateIntrinsicsDetailedWithParams(cloud, params)
	if err != nil {
		return Intrinsics{}, err
	}
	return detailed.Intrinsics(), nil
}

// EstimateIntrinsicsF32 is EstimateIntrinsics for single-precision clouds.
func EstimateIntrinsicsF32(cloud PointCloudF32) (Intrinsics, error) {
	return EstimateIntrinsics(cloud.ToFloat64())
}

// EstimateIntrinsicsDetailed recovers the sensor geometry along with the
// per-scanline estimation diagnostics.
func EstimateIntrinsicsDetailed(cloud PointCloud) (IntrinsicsDetailed, error) {
	return EstimateIntrinsicsDetailedWithParams(cloud, DefaultParams())
}

// EstimateIntrinsicsDetailedWithParams is EstimateIntrinsicsDetailed with
// explicit parameters.
func EstimateIntrinsicsDetailedWithParams(cloud PointCloud, params Params) (result IntrinsicsDetailed, err error) {
	// Recoverable conditions are handled inside the estimators; anything
	// that still panics is an invariant violation and surfaces as a single
	// error kind at this boundary.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	points, err := geom.NewPointArray(cloud.X, cloud.Y, cloud.Z)
	if err != nil {
		return IntrinsicsDetailed{}, err
	}

	verticalResult := vertical.Estimate(points, params.verticalConfig())
	horizontalResult := horizontal.Estimate(
		points, verticalResult.PointScanlineIDs, len(verticalResult.Scanlines), params.horizontalConfig(),
	)

	return assembleDetailed(verticalResult, horizontalResult), nil
}

func assembleDetailed(v vertical.Result, h []horizontal.Scanline) IntrinsicsDetailed {
	out := IntrinsicsDetailed{
		Scanlines:          make([]ScanlineDetailed, len(v.Scanlines)),
		VerticalIterations: v.Iterations,
		UnassignedPoints:   v.UnassignedPoints,
		PointsCount:        v.PointsCount,
		EndReason:          EndReason(v.EndReason),
	}

	for i, s := range v.Scanlines {
		out.Scanlines[i] = ScanlineDetailed{
			VerticalOffset: ValueConfInterval{
				Value: s.Offset.Value,
				CI:    Interval{Lower: s.Offset.CI.Lower, Upper: s.Offset.CI.Upper},
			},
			VerticalAngle: ValueConfInterval{
				Value: s.Angle.Value,
				CI:    Interval{Lower: s.Angle.CI.Lower, Upper: s.Angle.CI.Upper},
			},
			HorizontalOffset: h[i].Offset,
			AzimuthalOffset:  h[i].ThetaOffset,
			Resolution:       int32(h[i].Resolution),
			Uncertainty:      s.Uncertainty,
			HoughVotes:       s.HoughVotes,
			HoughHash:        s.HoughHash,
			PointsCount:      s.PointsCount,
			TheoreticalAngleBounds: ScanlineAngleBounds{
				LowerLine: Interval{Lower: s.Bounds.LowerLine.Lower, Upper: s.Bounds.LowerLine.Upper},
				UpperLine: Interval{Lower: s.Bounds.UpperLine.Lower, Upper: s.Bounds.UpperLine.Upper},
			},
			VerticalHeuristic:   s.Heuristic,
			HorizontalHeuristic: h[i].Heuristic,
		}
	}

	return out
}
