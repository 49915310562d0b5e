// Package monitor drives the read, reconcile, aggregate cycle.
package monitor

// Decision is the outcome of comparing the laid out groups with a snapshot.
type Decision int

const (
	// Refresh means the layout matches and values may be drawn.
	Refresh Decision = iota
	// Rebuild means panels must be recreated before any values are drawn.
	Rebuild
)

func (d Decision) String() string {
	if d == Rebuild {
		return "rebuild"
	}
	return "refresh"
}

// Reconcile compares group sets by membership.
func Reconcile(current, latest []string) Decision {
	cur := make(map[string]struct{}, len(current))
	for _, g := range current {
		cur[g] = struct{}{}
	}
	next := make(map[string]struct{}, len(latest))
	for _, g := range latest {
		next[g] = struct{}{}
	}
	if len(cur) != len(next) {
		return Rebuild
	}
	for g := range next {
		if _, ok := cur[g]; !ok {
			return Rebuild
		}
	}
	return Refresh
}
