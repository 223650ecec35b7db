package lri

import (
	"math"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/mathx"
	"github.com/banshee-data/lri/internal/monitoring"
)

// maxRangeImageWidth caps the image width when the least common multiple of
// the scanline resolutions degenerates.
const maxRangeImageWidth = 1 << 20

// ProjectToRangeImage projects a cloud onto the range image defined by the
// intrinsics. Rows index scanlines top-down (row = height-1-id), columns
// index azimuth over one revolution; the pixel value is the point's range,
// 0 meaning empty. Each point lands on the scanline whose elevation model
// explains it best; a collision (two points on one pixel) is logged and the
// later point wins.
func ProjectToRangeImage(intrinsics Intrinsics, cloud PointCloud) (RangeImage, error) {
	points, err := geom.NewPointArray(cloud.X, cloud.Y, cloud.Z)
	if err != nil {
		return RangeImage{}, err
	}

	width := lcmResolution(intrinsics)
	height := len(intrinsics.Scanlines)
	image := NewRangeImage(width, height)

	for i := 0; i < points.Len(); i++ {
		scanlineIdx := bestScanlineFor(intrinsics.Scanlines, points.Phi[i], points.Range[i])
		if scanlineIdx < 0 {
			continue
		}
		s := intrinsics.Scanlines[scanlineIdx]

		theta := points.Theta[i] + math.Pi
		corrected := mathx.PositiveFmod(theta-s.HorizontalOffset/points.RangeXy[i]-s.AzimuthalOffset, 2*math.Pi)

		col := int(math.Round(corrected / (2 * math.Pi) * float64(width)))
		if col < 0 {
			col = width - col
		}
		if col >= width {
			col -= width
		}

		row := height - 1 - scanlineIdx
		if prev := image.At(row, col); prev != 0 {
			monitoring.Logf("rangeimage: overwriting pixel (%d, %d): %v -> %v, losslessness not achieved",
				row, col, prev, points.Range[i])
		}
		image.Set(row, col, points.Range[i])
	}

	return image, nil
}

// UnprojectToPointCloud inverts the projection: every nonzero pixel becomes
// a point at the elevation and azimuth its scanline model prescribes.
func UnprojectToPointCloud(intrinsics Intrinsics, image RangeImage) PointCloud {
	var cloud PointCloud

	for row := 0; row < image.Height; row++ {
		scanlineIdx := image.Height - 1 - row
		s := intrinsics.Scanlines[scanlineIdx]

		for col := 0; col < image.Width; col++ {
			r := image.At(row, col)
			if r <= 0 {
				continue
			}

			phi := s.VerticalAngle + s.VerticalOffset/r
			rXy := r * math.Cos(phi)

			theta := float64(col)*2*math.Pi/float64(image.Width) - math.Pi
			theta += s.HorizontalOffset/rXy + s.AzimuthalOffset
			theta = mathx.PositiveFmod(theta, 2*math.Pi)

			cloud.X = append(cloud.X, rXy*math.Cos(theta))
			cloud.Y = append(cloud.Y, rXy*math.Sin(theta))
			cloud.Z = append(cloud.Z, r*math.Sin(phi))
		}
	}

	return cloud
}

// bestScanlineFor picks the scanline minimising the elevation residual
// |phi - offset/range - angle|. Equal residuals keep the lower id.
func bestScanlineFor(scanlines []Scanline, phi, r float64) int {
	best := -1
	bestDiff := math.Inf(1)
	for idx, s := range scanlines {
		diff := math.Abs(phi - s.VerticalOffset/r - s.VerticalAngle)
		if diff < bestDiff {
			best = idx
			bestDiff = diff
		}
	}
	return best
}

// lcmResolution returns the least common multiple of the nonzero scanline
// resolutions, clipped to maxRangeImageWidth.
func lcmResolution(intrinsics Intrinsics) int {
	result := 1
	for _, s := range intrinsics.Scanlines {
		if s.Resolution <= 0 {
			continue
		}
		result = lcm(result, int(s.Resolution))
		if result > maxRangeImageWidth {
			monitoring.Logf("rangeimage: width clipped to %d", maxRangeImageWidth)
			return maxRangeImageWidth
		}
	}
	return result
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
