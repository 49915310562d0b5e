package export

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/trafficwatch/internal/model"
	"github.com/verte-zerg/trafficwatch/internal/render"
	"github.com/verte-zerg/trafficwatch/internal/stats"
)

func sampleSnapshot() stats.Snapshot {
	return stats.Snapshot{
		Baseline: 30,
		Groups:   []string{"1", "2"},
		Records: map[string]model.GroupRecord{
			"1": {Baseline: 30, Last: 33, Mean: 34.5, Max: 36, Samples: 3, Adaptive: 2},
			"2": {Baseline: 30, Samples: 1},
		},
		Rows: 4,
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, "Road", sampleSnapshot()); err != nil {
		t.Fatalf("write png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= b.Dx()/2 {
		t.Fatalf("unexpected image size %v", b)
	}
}

func TestWritePNGNoGroups(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, "Road", stats.Snapshot{}); !errors.Is(err, ErrNoGroups) {
		t.Fatalf("expected ErrNoGroups, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %d bytes", buf.Len())
	}
}

func TestWritePNGFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chart.png")
	if err := WritePNGFile(path, "Road", sampleSnapshot()); err != nil {
		t.Fatalf("write file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected non-empty file")
	}
}

func TestChartSurfaceColors(t *testing.T) {
	c := newChart()
	c.Clear()
	c.SetBars(render.Categories, []float64{1, 2, 3, 4}, nil)
	if c.err != nil {
		t.Fatalf("unexpected error: %v", c.err)
	}
	if got := toColor("#E5484D"); got == nil {
		t.Fatalf("expected parsed color")
	}
	r, g, b, _ := toColor("not-a-color").RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected black fallback")
	}
}
