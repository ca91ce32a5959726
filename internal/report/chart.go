package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/motion.profile/internal/profile"
)

// ChartData bundles the series an interactive chart shows.
type ChartData struct {
	Title       string
	Units       string         // velocity axis label
	Nodes       []profile.Node // reconstructed node polyline
	Steps       []profile.Node // per-segment average velocity step curve
	GroundTruth []profile.Node // optional reference trace
}

// RenderChart writes an interactive HTML line chart of the velocity profile.
func RenderChart(w io.Writer, data ChartData) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: data.Title, Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: data.Title, Subtitle: fmt.Sprintf("nodes=%d", len(data.Nodes))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "time (s)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: fmt.Sprintf("velocity (%s)", data.Units), NameLocation: "middle", NameGap: 40}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	addSeries := func(name string, nodes []profile.Node, chartOpts ...charts.SeriesOpts) {
		if len(nodes) == 0 {
			return
		}
		points := make([]opts.LineData, len(nodes))
		for i, n := range nodes {
			points[i] = opts.LineData{Value: []interface{}{n.Time, n.Velocity}}
		}
		line.AddSeries(name, points, chartOpts...)
	}

	addSeries("Optimization Velocity", data.Nodes,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	// The step series already carries both corner points per segment, so a
	// plain polyline renders the post-step shape.
	addSeries("Video Analysis Velocity", data.Steps)
	addSeries("Ground Truth Velocity", data.GroundTruth,
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))

	return line.Render(w)
}
