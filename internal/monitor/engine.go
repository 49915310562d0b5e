package monitor

import (
	"io"
	"log/slog"

	"github.com/verte-zerg/trafficwatch/internal/model"
	"github.com/verte-zerg/trafficwatch/internal/stats"
)

// Reader yields the current log snapshot, or false when none is available.
type Reader interface {
	Read() ([]model.Sample, bool)
}

// Liveness probes the simulation for a natural exit.
type Liveness interface {
	CheckExited() bool
}

// Outcome classifies a tick.
type Outcome int

const (
	// OutcomeSkipped means no snapshot was available; nothing changed.
	OutcomeSkipped Outcome = iota
	// OutcomeRebuilt means the group set changed; panels must be recreated
	// and values wait for the next tick.
	OutcomeRebuilt
	// OutcomeRefreshed means records were recomputed for the current layout.
	OutcomeRefreshed
	// OutcomeBusy means a tick was already running and this one was dropped.
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRebuilt:
		return "rebuilt"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// State is the monitor's owned view of what is laid out and drawn.
type State struct {
	Groups   []string
	Records  map[string]model.GroupRecord
	Baseline int
	Rows     int
	// Generation increments whenever the layout is discarded.
	Generation int
}

// Frame is what a tick hands to the renderer.
type Frame struct {
	Outcome  Outcome
	Groups   []string
	Records  map[string]model.GroupRecord
	Baseline int
	Rows     int
	// Exited is set when the simulation was seen to finish during the tick.
	Exited bool
}

// Engine runs one tick at a time against a reader and a liveness probe.
type Engine struct {
	reader   Reader
	liveness Liveness
	logger   *slog.Logger

	state    State
	inFlight bool
	dropped  int
}

// NewEngine builds an Engine. liveness may be nil.
func NewEngine(reader Reader, liveness Liveness, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{reader: reader, liveness: liveness, logger: logger}
}

// Tick reads the log, reconciles the layout, and aggregates records when
// the layout already matches. A rebuild tick carries no records.
func (e *Engine) Tick() Frame {
	if e.inFlight {
		e.dropped++
		return Frame{Outcome: OutcomeBusy}
	}
	e.inFlight = true
	defer func() { e.inFlight = false }()

	frame := e.sync()
	if e.liveness != nil && e.liveness.CheckExited() {
		frame.Exited = true
	}
	return frame
}

func (e *Engine) sync() Frame {
	samples, ok := e.reader.Read()
	if !ok {
		return Frame{Outcome: OutcomeSkipped}
	}
	baseline, ok := stats.Baseline(samples)
	if !ok {
		return Frame{Outcome: OutcomeSkipped}
	}
	groups := stats.Groups(samples)
	if Reconcile(e.state.Groups, groups) == Rebuild {
		e.logger.Debug("group set changed", "from", e.state.Groups, "to", groups)
		e.state = State{Groups: groups, Generation: e.state.Generation + 1}
		return Frame{Outcome: OutcomeRebuilt, Groups: append([]string(nil), groups...)}
	}
	records := stats.Aggregate(samples, baseline, groups)
	e.state.Records = records
	e.state.Baseline = baseline
	e.state.Rows = len(samples)
	return Frame{
		Outcome:  OutcomeRefreshed,
		Groups:   append([]string(nil), groups...),
		Records:  records,
		Baseline: baseline,
		Rows:     len(samples),
	}
}

// Reset discards the layout and cached records.
func (e *Engine) Reset() {
	e.state = State{Generation: e.state.Generation + 1}
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	s := e.state
	s.Groups = append([]string(nil), e.state.Groups...)
	if e.state.Records != nil {
		s.Records = make(map[string]model.GroupRecord, len(e.state.Records))
		for k, v := range e.state.Records {
			s.Records[k] = v
		}
	}
	return s
}

// Dropped returns how many reentrant ticks were skipped.
func (e *Engine) Dropped() int {
	return e.dropped
}
