package stats

import (
	"fmt"
	"io"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

// Snapshot is the derived view of one successful log read.
type Snapshot struct {
	Baseline int
	Groups   []string
	Records  map[string]model.GroupRecord
	Rows     int
}

// Build derives a snapshot from parsed samples. It reports false when there
// are no samples.
func Build(samples []model.Sample) (Snapshot, bool) {
	baseline, ok := Baseline(samples)
	if !ok {
		return Snapshot{}, false
	}
	groups := Groups(samples)
	return Snapshot{
		Baseline: baseline,
		Groups:   groups,
		Records:  Aggregate(samples, baseline, groups),
		Rows:     len(samples),
	}, true
}

// RenderSummary prints a per-group table for the snapshot.
func RenderSummary(w io.Writer, label string, snap Snapshot) error {
	if len(snap.Groups) == 0 {
		_, err := fmt.Fprintln(w, "No rows found.")
		return err
	}
	if _, err := fmt.Fprintf(w, "Rows: %d  Baseline: %d\n", snap.Rows, snap.Baseline); err != nil {
		return err
	}
	headers := []string{label, "Baseline", "Last", "Mean", "Max", "Samples", "Adaptive"}
	rows := make([][]string, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		rec := snap.Records[g]
		rows = append(rows, []string{
			g,
			fmt.Sprintf("%d", rec.Baseline),
			fmt.Sprintf("%d", rec.Last),
			fmt.Sprintf("%.2f", rec.Mean),
			fmt.Sprintf("%d", rec.Max),
			fmt.Sprintf("%d", rec.Samples),
			fmt.Sprintf("%d", rec.Adaptive),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// SummaryLine renders a compact one-line view used by plain mode.
func SummaryLine(label string, snap Snapshot) string {
	line := fmt.Sprintf("rows=%d baseline=%d", snap.Rows, snap.Baseline)
	for _, g := range snap.Groups {
		rec := snap.Records[g]
		line += fmt.Sprintf(" | %s %s last=%d mean=%.1f max=%d", label, g, rec.Last, rec.Mean, rec.Max)
	}
	return line
}
