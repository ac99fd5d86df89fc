// Package report renders training curves.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/digits/internal/metrics"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrEmptyHistory is returned when there is nothing to plot.
var ErrEmptyHistory = errors.New("report: empty history")

// Plot size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// PlotHistory saves per-epoch loss and accuracy to path. The image format
// follows the file extension (.png, .svg, .pdf, ...).
func PlotHistory(h *metrics.History, path string) error {
	p, err := newHistoryPlot(h)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("report: saving %s: %w", path, err)
	}
	return nil
}

// WriteHistory renders the plot in the given format ("png", "svg", ...) to w.
func WriteHistory(w io.Writer, h *metrics.History, format string) error {
	p, err := newHistoryPlot(h)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, strings.TrimPrefix(format, "."))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func newHistoryPlot(h *metrics.History) (*plot.Plot, error) {
	if h == nil || h.Len() == 0 {
		return nil, ErrEmptyHistory
	}

	p := plot.New()
	p.Title.Text = "Training"
	p.X.Label.Text = "epoch"
	p.X.Min = 1
	p.Y.Min = 0
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, series := range []struct {
		name   string
		values []float64
	}{
		{"loss", h.Losses()},
		{"accuracy", h.Accuracies()},
	} {
		pts := make(plotter.XYs, len(series.values))
		for j, v := range series.values {
			pts[j].X = float64(h.Epochs[j].Epoch)
			pts[j].Y = v
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("report: %s: %w", series.name, err)
		}
		line.Width = vg.Points(2)
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)

		p.Add(line, points)
		p.Legend.Add(series.name, line, points)
	}
	return p, nil
}
