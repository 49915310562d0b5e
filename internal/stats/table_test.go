package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Road", "Baseline", "Mean"}
	rows := [][]string{
		{"1", "30", "37.00"},
		{"north", "30", "8.50"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != "Road   Baseline   Mean" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "-----  --------  -----" {
		t.Fatalf("unexpected rule line: %q", lines[1])
	}
	if lines[2] != "1            30  37.00" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
	if lines[3] != "north        30   8.50" {
		t.Fatalf("unexpected row line: %q", lines[3])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := formatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
