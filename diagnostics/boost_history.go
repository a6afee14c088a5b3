// Package diagnostics renders training diagnostics of the ensembles.
package diagnostics

import (
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/bayesnet/ensembles"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// DefaultWidth and DefaultHeight are the image size used when a caller passes 0.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// PlotBoostHistory builds a line chart of the per round alpha and epsilon of
// a BoostAODE run. Rounds with a validation measurement add a third series.
func PlotBoostHistory(history []ensembles.Round, title string) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, errors.NewValueError("PlotBoostHistory", "empty boosting history")
	}

	alpha := make(plotter.XYs, len(history))
	epsilon := make(plotter.XYs, len(history))
	var validation plotter.XYs
	for i, r := range history {
		x := float64(r.Iteration)
		alpha[i] = plotter.XY{X: x, Y: r.Alpha}
		epsilon[i] = plotter.XY{X: x, Y: r.Epsilon}
		if r.Validated {
			validation = append(validation, plotter.XY{X: x, Y: r.ValidationAccuracy})
		}
	}

	p := plot.New()
	if title == "" {
		title = "BoostAODE"
	}
	p.Title.Text = title
	p.X.Label.Text = "round"
	p.Y.Label.Text = "value"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	series := []struct {
		name string
		xys  plotter.XYs
	}{
		{"alpha", alpha},
		{"epsilon", epsilon},
		{"validation accuracy", validation},
	}
	for i, s := range series {
		if len(s.xys) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(s.xys)
		if err != nil {
			return nil, errors.Wrapf(err, "diagnostics: %s series", s.name)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(s.name, line, points)
	}
	return p, nil
}

// SaveBoostHistory writes the history chart to path. The format follows the
// file extension (png, svg, pdf, ...).
func SaveBoostHistory(history []ensembles.Round, title, path string, width, height vg.Length) error {
	p, err := PlotBoostHistory(history, title)
	if err != nil {
		return err
	}
	width, height = size(width, height)
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "diagnostics: save %s", path)
	}
	return nil
}

// WriteBoostHistory renders the chart in the given format ("png", "svg", ...) to w.
func WriteBoostHistory(w io.Writer, history []ensembles.Round, title, format string, width, height vg.Length) error {
	p, err := PlotBoostHistory(history, title)
	if err != nil {
		return err
	}
	width, height = size(width, height)
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return errors.Wrapf(err, "diagnostics: format %q", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "diagnostics: write chart")
	}
	return nil
}

// FormatFromPath returns the image format implied by the extension of path.
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func size(width, height vg.Length) (vg.Length, vg.Length) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return width, height
}
