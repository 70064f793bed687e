package main

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/linedetection/vision/linedetection"
)

// plotProlongationHistogram saves a bar chart of the prolongation buckets. The image format
// follows the extension of path.
func plotProlongationHistogram(h *linedetection.ProlongationHistogram, path string) error {
	values := make(plotter.Values, len(h))
	for i, c := range h {
		values[i] = float64(c)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "cannot build prolongation histogram")
	}
	bars.Color = linedetection.Edge.Color()
	bars.LineStyle.Width = vg.Length(0)

	p := plot.New()
	p.Title.Text = "Prolongation patterns"
	p.Y.Label.Text = "lines"
	p.Add(bars)
	p.NominalX(h.Labels()...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "cannot save prolongation histogram to %q", path)
	}
	return nil
}
