// Package report renders diagnostic views of an estimation result: an
// interactive HTML page with the per-scanline elevation structure, and a
// static PNG of the same scatter for quick inspection.
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/lri"
)

// maxPointsPerSeries limits the HTML payload; larger scanlines are
// downsampled by stride.
const maxPointsPerSeries = 4000

// assignPoints maps every point to the scanline whose elevation model
// explains it best, mirroring the projection rule.
func assignPoints(scanlines []lri.ScanlineDetailed, cloud lri.PointCloud) []int {
	out := make([]int, cloud.Len())
	for i := range out {
		r := math.Sqrt(cloud.X[i]*cloud.X[i] + cloud.Y[i]*cloud.Y[i] + cloud.Z[i]*cloud.Z[i])
		phi := math.Asin(cloud.Z[i] / r)

		best := -1
		bestDiff := math.Inf(1)
		for idx, s := range scanlines {
			diff := math.Abs(phi - s.VerticalOffset.Value/r - s.VerticalAngle.Value)
			if diff < bestDiff {
				best = idx
				bestDiff = diff
			}
		}
		out[i] = best
	}
	return out
}

// WriteHTML renders the interactive diagnostics page: an elevation scatter
// (reciprocal range vs elevation, one series per scanline) and a bar chart
// of points per scanline.
func WriteHTML(w io.Writer, detailed lri.IntrinsicsDetailed, cloud lri.PointCloud) error {
	assignments := assignPoints(detailed.Scanlines, cloud)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "LiDAR intrinsics diagnostics",
			Width:     "1200px",
			Height:    "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Scanline elevation structure",
			Subtitle: fmt.Sprintf("%d scanlines, %d points, %d unassigned, end: %s",
				len(detailed.Scanlines), detailed.PointsCount, detailed.UnassignedPoints, detailed.EndReason),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "1/range (1/m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "elevation (rad)"}),
	)

	bySeries := make([][]opts.ScatterData, len(detailed.Scanlines))
	for i, idx := range assignments {
		if idx < 0 {
			continue
		}
		r := math.Sqrt(cloud.X[i]*cloud.X[i] + cloud.Y[i]*cloud.Y[i] + cloud.Z[i]*cloud.Z[i])
		phi := math.Asin(cloud.Z[i] / r)
		bySeries[idx] = append(bySeries[idx], opts.ScatterData{Value: []interface{}{1 / r, phi}})
	}

	for idx, data := range bySeries {
		stride := 1
		if len(data) > maxPointsPerSeries {
			stride = int(math.Ceil(float64(len(data)) / maxPointsPerSeries))
		}
		sampled := make([]opts.ScatterData, 0, len(data)/stride+1)
		for i := 0; i < len(data); i += stride {
			sampled = append(sampled, data[i])
		}

		name := fmt.Sprintf("scanline %d", idx)
		if detailed.Scanlines[idx].VerticalHeuristic {
			name += " (heuristic)"
		}
		scatter.AddSeries(name, sampled, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Points per scanline"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "scanline"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "points"}),
	)

	var labels []string
	var counts []opts.BarData
	for idx, s := range detailed.Scanlines {
		labels = append(labels, fmt.Sprintf("%d", idx))
		counts = append(counts, opts.BarData{Value: s.PointsCount})
	}
	bar.SetXAxis(labels)
	bar.AddSeries("points", counts)

	page := components.NewPage()
	page.AddCharts(scatter, bar)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
