package render

import (
	"strings"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

// Layout is the set of panels currently laid out, one per group.
type Layout struct {
	label  string
	groups []string
	panels map[string]*Panel
}

// NewLayout creates fresh panels for groups, which must already be sorted.
func NewLayout(label string, groups []string) *Layout {
	l := &Layout{
		label:  label,
		groups: append([]string(nil), groups...),
		panels: make(map[string]*Panel, len(groups)),
	}
	for _, g := range groups {
		l.panels[g] = NewPanel(Title(label, g))
	}
	return l
}

// Groups returns the laid out group ids in display order.
func (l *Layout) Groups() []string {
	return append([]string(nil), l.groups...)
}

// Panel returns the panel for a group.
func (l *Layout) Panel(group string) (*Panel, bool) {
	p, ok := l.panels[group]
	return p, ok
}

// Apply draws each record onto its panel. Records without a panel are
// ignored.
func (l *Layout) Apply(records map[string]model.GroupRecord) {
	for _, g := range l.groups {
		rec, ok := records[g]
		if !ok {
			continue
		}
		Draw(l.panels[g], l.label, g, rec)
	}
}

// View stacks all panels vertically.
func (l *Layout) View(width int) string {
	parts := make([]string, 0, len(l.groups))
	for _, g := range l.groups {
		parts = append(parts, l.panels[g].View(width))
	}
	return strings.Join(parts, "\n")
}
