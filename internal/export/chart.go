// Package export writes monitor snapshots to image files.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/verte-zerg/trafficwatch/internal/render"
	"github.com/verte-zerg/trafficwatch/internal/stats"
)

// ErrNoGroups is returned when there is nothing to chart.
var ErrNoGroups = errors.New("snapshot has no groups")

const (
	chartWidth  = 16 * vg.Centimeter
	groupHeight = 5 * vg.Centimeter
	chartDPI    = 150
	barWidth    = vg.Length(18)
)

// chart is an image Surface for one group.
type chart struct {
	plot *plot.Plot
	err  error
}

func newChart() *chart {
	return &chart{plot: plot.New()}
}

// SetBars implements render.Surface.
func (c *chart) SetBars(categories []string, values []float64, colors []lipgloss.Color) {
	for i, v := range values {
		bars, err := plotter.NewBarChart(plotter.Values{v}, barWidth)
		if err != nil {
			c.err = fmt.Errorf("bar %q: %w", categories[i], err)
			return
		}
		bars.Horizontal = true
		bars.XMin = float64(i)
		bars.LineStyle.Width = 0
		if i < len(colors) {
			bars.Color = toColor(colors[i])
		}
		c.plot.Add(bars)
	}
	c.plot.NominalY(categories...)
}

// SetAxisRange implements render.Surface.
func (c *chart) SetAxisRange(min, max float64) {
	c.plot.X.Min = min
	c.plot.X.Max = max
}

// SetTitle implements render.Surface.
func (c *chart) SetTitle(title string) {
	c.plot.Title.Text = title
}

// Clear implements render.Surface.
func (c *chart) Clear() {
	c.plot = plot.New()
	c.plot.X.Label.Text = "seconds"
	c.plot.Add(plotter.NewGrid())
	c.err = nil
}

func toColor(c lipgloss.Color) color.Color {
	parsed, err := colorful.Hex(string(c))
	if err != nil {
		return color.Black
	}
	return parsed
}

// WritePNG renders one horizontal bar chart per group, stacked vertically.
func WritePNG(w io.Writer, label string, snap stats.Snapshot) error {
	if len(snap.Groups) == 0 {
		return ErrNoGroups
	}
	plots := make([][]*plot.Plot, len(snap.Groups))
	for i, g := range snap.Groups {
		c := newChart()
		render.Draw(c, label, g, snap.Records[g])
		if c.err != nil {
			return c.err
		}
		plots[i] = []*plot.Plot{c.plot}
	}

	img := vgimg.NewWith(
		vgimg.UseWH(chartWidth, groupHeight*vg.Length(len(plots))),
		vgimg.UseDPI(chartDPI),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WritePNGFile writes the chart to path, creating parent directories.
func WritePNGFile(path, label string, snap stats.Snapshot) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WritePNG(f, label, snap)
}
