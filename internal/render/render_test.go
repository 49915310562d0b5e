package render

import (
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

type recordingSurface struct {
	calls      []string
	categories []string
	values     []float64
	colors     []lipgloss.Color
	min, max   float64
	title      string
}

func (s *recordingSurface) SetBars(categories []string, values []float64, colors []lipgloss.Color) {
	s.calls = append(s.calls, "bars")
	s.categories, s.values, s.colors = categories, values, colors
}

func (s *recordingSurface) SetAxisRange(min, max float64) {
	s.calls = append(s.calls, "axis")
	s.min, s.max = min, max
}

func (s *recordingSurface) SetTitle(title string) {
	s.calls = append(s.calls, "title")
	s.title = title
}

func (s *recordingSurface) Clear() {
	s.calls = append(s.calls, "clear")
}

func TestDrawFixedCategoriesAndAxis(t *testing.T) {
	s := &recordingSurface{}
	Draw(s, "Road", "2", model.GroupRecord{Baseline: 30, Last: 34, Mean: 36.5, Max: 40})

	if s.calls[0] != "clear" {
		t.Fatalf("expected clear first, got %v", s.calls)
	}
	if !reflect.DeepEqual(s.categories, []string{"Baseline", "Last", "Mean", "Max"}) {
		t.Fatalf("unexpected categories: %v", s.categories)
	}
	if !reflect.DeepEqual(s.values, []float64{30, 34, 36.5, 40}) {
		t.Fatalf("unexpected values: %v", s.values)
	}
	if s.min != 0 || s.max != 40*1.3+1 {
		t.Fatalf("unexpected axis range: %v..%v", s.min, s.max)
	}
	if s.title != "Road 2: Baseline vs Adaptive Timing" {
		t.Fatalf("unexpected title: %q", s.title)
	}
}

func TestColorsIndexedByCategory(t *testing.T) {
	a := &recordingSurface{}
	b := &recordingSurface{}
	Draw(a, "Road", "1", model.GroupRecord{Baseline: 1})
	Draw(b, "Road", "2", model.GroupRecord{Baseline: 90, Last: 5, Mean: 7, Max: 9})
	if !reflect.DeepEqual(a.colors, b.colors) {
		t.Fatalf("colors depend on data: %v vs %v", a.colors, b.colors)
	}
	seen := map[lipgloss.Color]bool{}
	for _, c := range a.colors {
		seen[c] = true
	}
	if len(seen) != len(Categories) {
		t.Fatalf("expected distinct colors, got %v", a.colors)
	}
}

func TestAxisMaxForZeroRecord(t *testing.T) {
	if got := AxisMax(Values(model.GroupRecord{})); got != 1 {
		t.Fatalf("expected axis max 1, got %v", got)
	}
}

func TestPanelView(t *testing.T) {
	p := NewPanel(Title("Road", "1"))
	pending := p.View(60)
	if !strings.Contains(pending, "Road 1") || !strings.Contains(pending, pendingText) {
		t.Fatalf("unexpected pending view:\n%s", pending)
	}

	Draw(p, "Road", "1", model.GroupRecord{Baseline: 30, Last: 15, Mean: 12.5, Max: 15})
	out := p.View(60)
	for _, want := range []string{"Baseline", "Last", "Mean", "Max", "12.50", "40.0 s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("panel view missing %q:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w != 60 {
			t.Fatalf("expected width 60, got %d for %q", w, line)
		}
	}
}

func TestBarCells(t *testing.T) {
	if got := barCells(10, 0, 20, 10); got != 5 {
		t.Fatalf("expected 5 cells, got %d", got)
	}
	if got := barCells(0, 0, 20, 10); got != 0 {
		t.Fatalf("expected 0 cells, got %d", got)
	}
	if got := barCells(50, 0, 20, 10); got != 10 {
		t.Fatalf("expected clamp to 10, got %d", got)
	}
}

func TestLayoutApplySkipsUnknownGroups(t *testing.T) {
	l := NewLayout("Road", []string{"1", "2"})
	l.Apply(map[string]model.GroupRecord{
		"1": {Baseline: 10, Last: 12, Mean: 12, Max: 12},
		"9": {Baseline: 10},
	})
	one, _ := l.Panel("1")
	two, _ := l.Panel("2")
	if !one.HasBars() || two.HasBars() {
		t.Fatalf("unexpected panel state: %v %v", one.HasBars(), two.HasBars())
	}
	if _, ok := l.Panel("9"); ok {
		t.Fatalf("unexpected panel for group 9")
	}
	if !reflect.DeepEqual(l.Groups(), []string{"1", "2"}) {
		t.Fatalf("unexpected groups: %v", l.Groups())
	}
}
