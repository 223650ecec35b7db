package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lri"
)

// seriesPalette cycles through distinguishable colors for the scanline
// scatter series.
var seriesPalette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
}

// SaveElevationPNG renders the (1/range, elevation) scatter, one color per
// scanline, to a PNG file.
func SaveElevationPNG(path string, detailed lri.IntrinsicsDetailed, cloud lri.PointCloud) error {
	assignments := assignPoints(detailed.Scanlines, cloud)

	p := plot.New()
	p.Title.Text = "Scanline elevation structure"
	p.X.Label.Text = "1/range (1/m)"
	p.Y.Label.Text = "elevation (rad)"

	bySeries := make([]plotter.XYs, len(detailed.Scanlines))
	for i, idx := range assignments {
		if idx < 0 {
			continue
		}
		r, phi := pointPolar(cloud, i)
		bySeries[idx] = append(bySeries[idx], plotter.XY{X: 1 / r, Y: phi})
	}

	for idx, pts := range bySeries {
		if len(pts) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("build scatter for scanline %d: %w", idx, err)
		}
		scatter.GlyphStyle.Color = seriesPalette[idx%len(seriesPalette)]
		scatter.GlyphStyle.Radius = vg.Points(1)

		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("scanline %d", idx), scatter)
	}

	if err := p.Save(12*vg.Inch, 7*vg.Inch, path); err != nil {
		return fmt.Errorf("save elevation plot: %w", err)
	}
	return nil
}

func pointPolar(cloud lri.PointCloud, i int) (r, phi float64) {
	x, y, z := cloud.X[i], cloud.Y[i], cloud.Z[i]
	r = math.Sqrt(x*x + y*y + z*z)
	phi = math.Asin(z / r)
	return r, phi
}
