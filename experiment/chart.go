package experiment

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/sentiml/automl"
	"github.com/YuminosukeSato/sentiml/pkg/errors"
)

// TrialChart records validation accuracy per trial and renders it as an image.
type TrialChart struct {
	points plotter.XYs
	failed int
}

// NewTrialChart creates an empty chart.
func NewTrialChart() *TrialChart {
	return &TrialChart{}
}

// Record implements report.TrialRecorder.
func (c *TrialChart) Record(r automl.TrialResult) {
	acc := r.Metrics.Accuracy()
	if r.Failed() || math.IsNaN(acc) {
		c.failed++
		return
	}
	c.points = append(c.points, plotter.XY{X: float64(r.Index), Y: acc})
}

// Len returns the number of plotted trials.
func (c *TrialChart) Len() int {
	return len(c.points)
}

// Save writes the chart to path. The image format follows the extension.
func (c *TrialChart) Save(path string) error {
	p := plot.New()
	p.Title.Text = "Validation accuracy per trial"
	p.X.Label.Text = "Trial"
	p.Y.Label.Text = "Accuracy"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Add(plotter.NewGrid())

	if len(c.points) > 0 {
		scatter, err := plotter.NewScatter(c.points)
		if err != nil {
			return errors.Wrap(err, "chart: scatter")
		}
		best := bestSoFar(c.points)
		line, err := plotter.NewLine(best)
		if err != nil {
			return errors.Wrap(err, "chart: line")
		}
		p.Add(scatter, line)
		p.Legend.Add("trial", scatter)
		p.Legend.Add("best so far", line)
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.NewIOError("write", path, err)
	}
	return nil
}

// bestSoFar is the running maximum of pts in index order.
func bestSoFar(pts plotter.XYs) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	best := math.Inf(-1)
	for i, pt := range pts {
		best = math.Max(best, pt.Y)
		out[i] = plotter.XY{X: pt.X, Y: best}
	}
	return out
}
