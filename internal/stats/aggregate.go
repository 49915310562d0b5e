package stats

import (
	moremath "github.com/aclements/go-moremath/stats"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

// Aggregate reduces each group's non-baseline timings, in log order, to
// last, mean, and max. Groups without adaptive timings get zero values.
func Aggregate(samples []model.Sample, baseline int, groups []string) map[string]model.GroupRecord {
	adaptive := make(map[string][]float64, len(groups))
	counts := make(map[string]int, len(groups))
	for _, s := range samples {
		counts[s.Group]++
		if s.Timing == baseline {
			continue
		}
		adaptive[s.Group] = append(adaptive[s.Group], float64(s.Timing))
	}

	out := make(map[string]model.GroupRecord, len(groups))
	for _, g := range groups {
		rec := model.GroupRecord{Baseline: baseline, Samples: counts[g]}
		values := adaptive[g]
		if len(values) > 0 {
			_, maxVal := moremath.Bounds(values)
			rec.Last = int(values[len(values)-1])
			rec.Mean = moremath.Mean(values)
			rec.Max = int(maxVal)
			rec.Adaptive = len(values)
		}
		out[g] = rec
	}
	return out
}
