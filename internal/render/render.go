// Package render turns group records into bar panels.
package render

import (
	"fmt"
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

// Surface is a drawing target for one group.
type Surface interface {
	SetBars(categories []string, values []float64, colors []lipgloss.Color)
	SetAxisRange(min, max float64)
	SetTitle(title string)
	Clear()
}

// Categories are drawn in this order in every panel.
var Categories = []string{"Baseline", "Last", "Mean", "Max"}

// palette is indexed by category, never by data.
var palette = []color.RGBA{
	{R: 0xE5, G: 0x48, B: 0x4D, A: 0xFF},
	{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF},
	{R: 0xEA, G: 0xB3, B: 0x08, A: 0xFF},
	{R: 0x22, G: 0xC5, B: 0x5E, A: 0xFF},
}

// Colors returns the category colors for terminal output.
func Colors() []lipgloss.Color {
	out := make([]lipgloss.Color, len(palette))
	for i, c := range palette {
		out[i] = lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
	}
	return out
}

// Values returns the record fields in category order.
func Values(rec model.GroupRecord) []float64 {
	return []float64{float64(rec.Baseline), float64(rec.Last), rec.Mean, float64(rec.Max)}
}

// AxisMax is 1.3 times the largest value plus one.
func AxisMax(values []float64) float64 {
	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal*1.3 + 1
}

// Title names a group panel.
func Title(label, group string) string {
	return fmt.Sprintf("%s %s: Baseline vs Adaptive Timing", label, group)
}

// Draw replaces the surface content with the record.
func Draw(s Surface, label, group string, rec model.GroupRecord) {
	values := Values(rec)
	s.Clear()
	s.SetBars(Categories, values, Colors())
	s.SetAxisRange(0, AxisMax(values))
	s.SetTitle(Title(label, group))
}
