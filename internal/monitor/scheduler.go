package monitor

import (
	"context"
	"fmt"
	"time"
)

// DefaultInterval matches the simulator's expected refresh cadence.
const DefaultInterval = 600 * time.Millisecond

// Scheduler drives an Engine from a single goroutine on a fixed cadence.
// Ticks that come due while one is running are dropped by the ticker.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
}

// NewScheduler builds a Scheduler. A non-positive interval uses the default.
func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{engine: engine, interval: interval}
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run ticks until ctx is done or fn returns false.
func (s *Scheduler) Run(ctx context.Context, fn func(Frame) bool) error {
	if s.engine == nil {
		return fmt.Errorf("scheduler has no engine")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !fn(s.engine.Tick()) {
				return nil
			}
		}
	}
}
