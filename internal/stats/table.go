package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

// formatTable lays out rows under headers with a rule line. Columns listed
// in rightAlignCols are padded on the left.
func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	widths := columnWidths(headers, rows)
	if len(widths) == 0 {
		return nil
	}
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, formatRow(headers, widths, rightAlignCols))
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(rule, columnGap))
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func columnWidths(headers []string, rows [][]string) []int {
	count := len(headers)
	for _, row := range rows {
		if len(row) > count {
			count = len(row)
		}
	}
	widths := make([]int, count)
	measure := func(cells []string) {
		for i, cell := range cells {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}
	return widths
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	cells := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := w - runewidth.StringWidth(cell)
		if pad < 0 {
			pad = 0
		}
		if rightAlignCols[i] {
			cells[i] = strings.Repeat(" ", pad) + cell
		} else {
			cells[i] = cell + strings.Repeat(" ", pad)
		}
	}
	return strings.TrimRight(strings.Join(cells, columnGap), " ")
}
