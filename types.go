// Package lri reconstructs the intrinsic geometry of a rotating multi-beam
// LiDAR from a single unordered point cloud, with no prior knowledge of the
// sensor model: how many scan lines produced the cloud and, per scan line,
// the vertical offset and angle, the horizontal offset, the azimuthal phase
// and the firings-per-revolution resolution. The recovered intrinsics
// project points to a dense range image and invert the projection.
package lri

// PointCloud is an unordered cloud as three parallel coordinate arrays.
type PointCloud struct {
	X []float64
	Y []float64
	Z []float64
}

// Len returns the number of points (of the X array; the arrays are
// validated for equal length at estimation time).
func (c PointCloud) Len() int { return len(c.X) }

// PointCloudF32 is a single-precision cloud, the native format of common
// LiDAR dumps. It is converted to double precision for estimation.
type PointCloudF32 struct {
	X []float32
	Y []float32
	Z []float32
}

// ToFloat64 widens the cloud to double precision.
func (c PointCloudF32) ToFloat64() PointCloud {
	out := PointCloud{
		X: make([]float64, len(c.X)),
		Y: make([]float64, len(c.Y)),
		Z: make([]float64, len(c.Z)),
	}
	for i, v := range c.X {
		out.X[i] = float64(v)
	}
	for i, v := range c.Y {
		out.Y[i] = float64(v)
	}
	for i, v := range c.Z {
		out.Z[i] = float64(v)
	}
	return out
}

// Scanline holds the intrinsic parameters of one scan line.
type Scanline struct {
	VerticalOffset   float64 `json:"verticalOffset"`
	VerticalAngle    float64 `json:"verticalAngle"`
	HorizontalOffset float64 `json:"horizontalOffset"`
	AzimuthalOffset  float64 `json:"azimuthalOffset"`
	Resolution       int32   `json:"resolution"`
}

// Intrinsics is the full sensor geometry: scanlines sorted by vertical
// angle ascending.
type Intrinsics struct {
	Scanlines []Scanline `json:"scanlines"`
}

// Interval is a closed numeric interval [Lower, Upper].
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ValueConfInterval is a value with its 95% confidence interval.
type ValueConfInterval struct {
	Value float64  `json:"value"`
	CI    Interval `json:"ci"`
}

// ScanlineAngleBounds are the theoretical elevation intervals spanned by a
// scanline's confidence region over the cloud's range extremes.
type ScanlineAngleBounds struct {
	LowerLine Interval `json:"lowerLine"`
	UpperLine Interval `json:"upperLine"`
}

// ScanlineDetailed extends Scanline with the estimation diagnostics.
type ScanlineDetailed struct {
	VerticalOffset   ValueConfInterval `json:"verticalOffset"`
	VerticalAngle    ValueConfInterval `json:"verticalAngle"`
	HorizontalOffset float64           `json:"horizontalOffset"`
	AzimuthalOffset  float64           `json:"azimuthalOffset"`
	Resolution       int32             `json:"resolution"`

	Uncertainty            float64             `json:"uncertainty"`
	HoughVotes             float64             `json:"houghVotes"`
	HoughHash              uint64              `json:"houghHash"`
	PointsCount            int                 `json:"pointsCount"`
	TheoreticalAngleBounds ScanlineAngleBounds `json:"theoreticalAngleBounds"`
	VerticalHeuristic      bool                `json:"verticalHeuristic"`
	HorizontalHeuristic    bool                `json:"horizontalHeuristic"`
}

// EndReason records why the vertical estimation loop terminated.
type EndReason int

const (
	// EndAllAssigned means every point was assigned to a scanline.
	EndAllAssigned EndReason = iota
	// EndMaxIterations means the iteration cap was reached.
	EndMaxIterations
	// EndNoMorePeaks means the Hough accumulator ran out of peaks.
	EndNoMorePeaks
)

func (r EndReason) String() string {
	switch r {
	case EndAllAssigned:
		return "all points assigned"
	case EndMaxIterations:
		return "maximum iterations reached"
	case EndNoMorePeaks:
		return "no more peaks"
	default:
		return "unknown"
	}
}

// IntrinsicsDetailed is the diagnostic counterpart of Intrinsics.
type IntrinsicsDetailed struct {
	Scanlines          []ScanlineDetailed `json:"scanlines"`
	VerticalIterations int                `json:"verticalIterations"`
	UnassignedPoints   int                `json:"unassignedPoints"`
	PointsCount        int                `json:"pointsCount"`
	EndReason          EndReason          `json:"endReason"`
}

// Intrinsics converts the detailed result to the plain form.
func (d IntrinsicsDetailed) Intrinsics() Intrinsics {
	out := Intrinsics{Scanlines: make([]Scanline, len(d.Scanlines))}
	for i, s := range d.Scanlines {
		out.Scanlines[i] = Scanline{
			VerticalOffset:   s.VerticalOffset.Value,
			VerticalAngle:    s.VerticalAngle.Value,
			HorizontalOffset: s.HorizontalOffset,
			AzimuthalOffset:  s.AzimuthalOffset,
			Resolution:       s.Resolution,
		}
	}
	return out
}

// RangeImage is a row-major range image: rows index scanlines top-down,
// columns index azimuth. A pixel value of 0 means empty.
type RangeImage struct {
	Pixels []float64
	Width  int
	Height int
}

// NewRangeImage allocates a zeroed image.
func NewRangeImage(width, height int) RangeImage {
	return RangeImage{Pixels: make([]float64, width*height), Width: width, Height: height}
}

// At returns the pixel at (row, col).
func (im RangeImage) At(row, col int) float64 { return im.Pixels[row*im.Width+col] }

// Set writes the pixel at (row, col).
func (im *RangeImage) Set(row, col int, v float64) { im.Pixels[row*im.Width+col] = v }
