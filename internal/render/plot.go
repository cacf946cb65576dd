package render

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/exval-cli/internal/exceptional"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	normalColor      = color.RGBA{R: 120, G: 144, B: 156, A: 255}
	exceptionalColor = color.RGBA{R: 211, G: 47, B: 47, A: 255}
)

// Plot saves a bar chart of every row's residual with the ±threshold band
// marked; exceptional rows are highlighted. The image format follows the file
// extension (png, svg, pdf, ...).
func Plot(path string, res *exceptional.Result) error {
	if len(res.Rows) == 0 {
		return fmt.Errorf("plot: no rows")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".svg", ".pdf", ".eps", ".tif", ".tiff":
	default:
		return fmt.Errorf("plot: unsupported image extension %q", filepath.Ext(path))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Residuals of %s (%s)", res.Response, res.Dataset)
	p.X.Label.Text = "row"
	p.Y.Label.Text = "residual"

	normal := make(plotter.Values, len(res.Rows))
	flagged := make(plotter.Values, len(res.Rows))
	for i, r := range res.Rows {
		if r.Residual > res.Threshold || r.Residual < -res.Threshold {
			flagged[i] = r.Residual
		} else {
			normal[i] = r.Residual
		}
	}
	width := vg.Points(4)
	if len(res.Rows) > 150 {
		width = vg.Points(1)
	}
	nb, err := plotter.NewBarChart(normal, width)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	nb.Color = normalColor
	nb.LineStyle.Width = 0
	fb, err := plotter.NewBarChart(flagged, width)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	fb.Color = exceptionalColor
	fb.LineStyle.Width = 0
	p.Add(nb, fb)

	thr := res.Threshold
	upper := plotter.NewFunction(func(float64) float64 { return thr })
	lower := plotter.NewFunction(func(float64) float64 { return -thr })
	for _, f := range []*plotter.Function{upper, lower} {
		f.Color = exceptionalColor
		f.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	}
	p.Add(upper, lower)
	p.Legend.Add(fmt.Sprintf("exceptional (%d)", len(res.Exceptional)), fb)
	p.Legend.Add(fmt.Sprintf("±%s", formatFloat(thr, -1)), upper)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
