// Package stats contains the timing statistics and summary rendering.
package stats

import (
	"sort"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

// Baseline returns the most frequent timing across all samples. Ties go to
// the smallest timing. It reports false for an empty snapshot.
func Baseline(samples []model.Sample) (int, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	counts := make(map[int]int)
	for _, s := range samples {
		counts[s.Timing]++
	}
	best, bestCount := 0, 0
	for timing, count := range counts {
		if count > bestCount || (count == bestCount && timing < best) {
			best, bestCount = timing, count
		}
	}
	return best, true
}

// Groups returns the distinct group ids in lexicographic order.
func Groups(samples []model.Sample) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range samples {
		if _, ok := seen[s.Group]; ok {
			continue
		}
		seen[s.Group] = struct{}{}
		out = append(out, s.Group)
	}
	sort.Strings(out)
	return out
}
