package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	barRune       = "█"
	valueWidth    = 8
	minPanelWidth = 30
	pendingText   = "waiting for data..."
)

var (
	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	panelTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	axisStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Panel is a terminal bar chart for one group.
type Panel struct {
	title      string
	categories []string
	values     []float64
	colors     []lipgloss.Color
	axisMin    float64
	axisMax    float64
}

// NewPanel returns an empty panel with a title.
func NewPanel(title string) *Panel {
	return &Panel{title: title}
}

// SetBars implements Surface.
func (p *Panel) SetBars(categories []string, values []float64, colors []lipgloss.Color) {
	p.categories = append([]string(nil), categories...)
	p.values = append([]float64(nil), values...)
	p.colors = append([]lipgloss.Color(nil), colors...)
}

// SetAxisRange implements Surface.
func (p *Panel) SetAxisRange(min, max float64) {
	p.axisMin = min
	p.axisMax = max
}

// SetTitle implements Surface.
func (p *Panel) SetTitle(title string) {
	p.title = title
}

// Clear implements Surface. The title is kept.
func (p *Panel) Clear() {
	p.categories = nil
	p.values = nil
	p.colors = nil
	p.axisMin = 0
	p.axisMax = 0
}

// Title returns the panel title.
func (p *Panel) Title() string {
	return p.title
}

// Values returns the drawn bar values.
func (p *Panel) Values() []float64 {
	return append([]float64(nil), p.values...)
}

// AxisRange returns the horizontal axis bounds.
func (p *Panel) AxisRange() (float64, float64) {
	return p.axisMin, p.axisMax
}

// HasBars reports whether values have been drawn.
func (p *Panel) HasBars() bool {
	return len(p.values) > 0
}

// View renders the panel at the given total width.
func (p *Panel) View(width int) string {
	if width < minPanelWidth {
		width = minPanelWidth
	}
	inner := width - panelStyle.GetHorizontalFrameSize()
	lines := []string{panelTitleStyle.Render(runewidth.Truncate(p.title, inner, "…"))}
	if !p.HasBars() {
		lines = append(lines, axisStyle.Render(pendingText))
		return panelStyle.Width(width - panelStyle.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
	}

	labelWidth := 0
	for _, c := range p.categories {
		if w := runewidth.StringWidth(c); w > labelWidth {
			labelWidth = w
		}
	}
	barWidth := inner - labelWidth - valueWidth - 2
	if barWidth < 1 {
		barWidth = 1
	}
	for i, c := range p.categories {
		v := 0.0
		if i < len(p.values) {
			v = p.values[i]
		}
		n := barCells(v, p.axisMin, p.axisMax, barWidth)
		bar := strings.Repeat(barRune, n)
		if i < len(p.colors) {
			bar = lipgloss.NewStyle().Foreground(p.colors[i]).Render(bar)
		}
		label := labelStyle.Render(runewidth.FillRight(c, labelWidth))
		gap := strings.Repeat(" ", barWidth-n)
		lines = append(lines, fmt.Sprintf("%s %s%s %*s", label, bar, gap, valueWidth, formatValue(v)))
	}
	lines = append(lines, axisStyle.Render(axisLine(labelWidth, barWidth, p.axisMin, p.axisMax)))
	return panelStyle.Width(width - panelStyle.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

func barCells(v, min, max float64, width int) int {
	if max <= min || v <= min {
		return 0
	}
	n := int(math.Round((v - min) / (max - min) * float64(width)))
	if n > width {
		n = width
	}
	return n
}

func axisLine(labelWidth, barWidth int, min, max float64) string {
	left := formatValue(min)
	right := fmt.Sprintf("%.1f s", max)
	fill := barWidth - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if fill < 1 {
		fill = 1
	}
	return strings.Repeat(" ", labelWidth+1) + left + strings.Repeat("─", fill) + right
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
