package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/verte-zerg/trafficwatch/internal/model"
	"github.com/verte-zerg/trafficwatch/internal/stats"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "snapshot.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return st
}

func TestLoadEmpty(t *testing.T) {
	st := openTemp(t)
	if _, _, err := st.LoadSnapshot(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := stats.Snapshot{
		Baseline: 30,
		Groups:   []string{"1", "2", "3"},
		Records: map[string]model.GroupRecord{
			"1": {Baseline: 30, Samples: 1},
			"2": {Baseline: 30, Samples: 1},
			"3": {Baseline: 30, Samples: 1},
		},
		Rows: 3,
	}
	if err := st.SaveSnapshot(ctx, Meta{LogPath: "a.csv", GroupLabel: "Road", ExportedAt: at}, first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := stats.Snapshot{
		Baseline: 30,
		Groups:   []string{"10", "2"},
		Records: map[string]model.GroupRecord{
			"10": {Baseline: 30, Last: 33, Mean: 34.5, Max: 36, Samples: 3, Adaptive: 2},
			"2":  {Baseline: 30, Samples: 2},
		},
		Rows: 5,
	}
	if err := st.SaveSnapshot(ctx, Meta{LogPath: "b.csv", GroupLabel: "Road", ExportedAt: at.Add(time.Minute)}, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	meta, got, err := st.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.LogPath != "b.csv" || !meta.ExportedAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if !reflect.DeepEqual(got, second) {
		t.Fatalf("unexpected snapshot:\n got %+v\nwant %+v", got, second)
	}
}

func TestSaveEmptySnapshot(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	if err := st.SaveSnapshot(ctx, Meta{LogPath: "a.csv"}, stats.Snapshot{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, got, err := st.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Groups) != 0 || len(got.Records) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}
