package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/motion.profile/internal/profile"
)

// SavePNG writes a static PNG rendering of the chart data, for inclusion in
// written reports.
func SavePNG(path string, data ChartData) error {
	p := plot.New()
	p.Title.Text = data.Title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = fmt.Sprintf("velocity (%s)", data.Units)
	p.Y.Min = 0

	toXYs := func(nodes []profile.Node) plotter.XYs {
		pts := make(plotter.XYs, len(nodes))
		for i, n := range nodes {
			pts[i] = plotter.XY{X: n.Time, Y: n.Velocity}
		}
		return pts
	}

	if len(data.Nodes) > 0 {
		line, err := plotter.NewLine(toXYs(data.Nodes))
		if err != nil {
			return fmt.Errorf("failed to build profile line: %w", err)
		}
		line.Width = vg.Points(2)
		line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		p.Add(line)
		p.Legend.Add("optimization", line)
	}

	if len(data.Steps) > 0 {
		line, err := plotter.NewLine(toXYs(data.Steps))
		if err != nil {
			return fmt.Errorf("failed to build step line: %w", err)
		}
		line.Width = vg.Points(1)
		line.Color = color.RGBA{R: 255, G: 127, B: 14, A: 255}
		p.Add(line)
		p.Legend.Add("video analysis", line)
	}

	if len(data.GroundTruth) > 0 {
		line, err := plotter.NewLine(toXYs(data.GroundTruth))
		if err != nil {
			return fmt.Errorf("failed to build ground truth line: %w", err)
		}
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		line.Color = color.RGBA{R: 44, G: 160, B: 44, A: 255}
		p.Add(line)
		p.Legend.Add("ground truth", line)
	}

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart PNG: %w", err)
	}
	return nil
}
