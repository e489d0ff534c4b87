// Package export renders aggregated statistics to external formats: an
// ECharts HTML page, CSV, and a Prometheus text-format metrics dump.
package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/vidstats/go-stats-index/internal/aggregate"
)

// WriteChart renders one bar chart per block-size label onto a single HTML
// page. Scalar labels chart count per value, vector labels count per
// displacement point.
func WriteChart(w io.Writer, title string, data []aggregate.CollectedData) error {
	page := components.NewPage()
	page.PageTitle = title

	for _, cd := range data {
		var (
			x []string
			y []opts.BarData
		)
		switch cd.Kind {
		case aggregate.KindValue:
			for _, vc := range cd.Values {
				x = append(x, fmt.Sprintf("%d", vc.Value))
				y = append(y, opts.BarData{Value: vc.Count})
			}
		case aggregate.KindVector:
			for _, pc := range cd.Points {
				x = append(x, fmt.Sprintf("(%d,%d)", pc.Point.X, pc.Point.Y))
				y = append(y, opts.BarData{Value: pc.Count})
			}
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    fmt.Sprintf("%s %s", title, cd.Label),
				Subtitle: fmt.Sprintf("%s histogram, %s blocks", cd.Kind, cd.Label),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(x).
			AddSeries(cd.Label, y,
				charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			)

		page.AddCharts(bar)
	}

	return page.Render(w)
}
