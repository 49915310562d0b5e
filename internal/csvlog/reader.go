// Package csvlog reads the append-only simulation log.
package csvlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verte-zerg/trafficwatch/internal/model"
)

// DefaultHeader is the schema line the simulator writes.
const DefaultHeader = "cycle,road,arrived,passed,waiting,emergency,adaptive_green"

const (
	DefaultGroupColumn  = "road"
	DefaultTimingColumn = "adaptive_green"
)

var (
	// ErrNoData means the log holds no rows yet.
	ErrNoData = errors.New("log has no rows")
	// ErrPartialWrite means the last line is not newline terminated.
	ErrPartialWrite = errors.New("log ends with a partial row")
)

// Options configures the log schema.
type Options struct {
	Header       string
	GroupColumn  string
	TimingColumn string
	Logger       *slog.Logger
}

// Reader parses the whole log from the start on every call.
type Reader struct {
	path         string
	header       string
	groupColumn  string
	timingColumn string
	logger       *slog.Logger
}

type columns struct {
	cycle     int
	group     int
	arrived   int
	passed    int
	waiting   int
	emergency int
	timing    int
}

// New builds a Reader for the log at path.
func New(path string, opts Options) *Reader {
	r := &Reader{
		path:         path,
		header:       opts.Header,
		groupColumn:  opts.GroupColumn,
		timingColumn: opts.TimingColumn,
		logger:       opts.Logger,
	}
	if r.header == "" {
		r.header = DefaultHeader
	}
	if r.groupColumn == "" {
		r.groupColumn = DefaultGroupColumn
	}
	if r.timingColumn == "" {
		r.timingColumn = DefaultTimingColumn
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Path returns the log location.
func (r *Reader) Path() string {
	return r.path
}

// Read returns the current snapshot. A missing, empty, or unparsable log
// yields (nil, false) and is never reported to the caller.
func (r *Reader) Read() ([]model.Sample, bool) {
	samples, err := r.Load()
	if err != nil {
		r.logger.Debug("skipping log snapshot", "path", r.path, "reason", err)
		return nil, false
	}
	return samples, true
}

// Load reads and parses the log, reporting why no snapshot is available.
func (r *Reader) Load() ([]model.Sample, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoData
	}
	if data[len(data)-1] != '\n' {
		return nil, ErrPartialWrite
	}
	samples, err := r.parse(data)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNoData
	}
	return samples, nil
}

// Reset truncates the log to the header line.
func (r *Reader) Reset() error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, []byte(r.header+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to reset log: %w", err)
	}
	return nil
}

func (r *Reader) parse(data []byte) ([]model.Sample, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := r.locateColumns(header)
	if err != nil {
		return nil, err
	}

	var samples []model.Sample
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sample, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func (r *Reader) locateColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	lookup := func(name string) int {
		if i, ok := index[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}
	cols := columns{
		cycle:     lookup("cycle"),
		group:     lookup(r.groupColumn),
		arrived:   lookup("arrived"),
		passed:    lookup("passed"),
		waiting:   lookup("waiting"),
		emergency: lookup("emergency"),
		timing:    lookup(r.timingColumn),
	}
	switch {
	case cols.cycle < 0:
		return columns{}, fmt.Errorf("missing column %q", "cycle")
	case cols.group < 0:
		return columns{}, fmt.Errorf("missing column %q", r.groupColumn)
	case cols.timing < 0:
		return columns{}, fmt.Errorf("missing column %q", r.timingColumn)
	}
	return cols, nil
}

func parseRecord(record []string, cols columns) (model.Sample, error) {
	var s model.Sample
	var err error
	if s.Cycle, err = intField(record, cols.cycle, "cycle"); err != nil {
		return model.Sample{}, err
	}
	s.Group = strings.TrimSpace(record[cols.group])
	if s.Group == "" {
		return model.Sample{}, fmt.Errorf("empty group")
	}
	if s.Arrived, err = intField(record, cols.arrived, "arrived"); err != nil {
		return model.Sample{}, err
	}
	if s.Passed, err = intField(record, cols.passed, "passed"); err != nil {
		return model.Sample{}, err
	}
	if s.Waiting, err = intField(record, cols.waiting, "waiting"); err != nil {
		return model.Sample{}, err
	}
	if s.Emergency, err = flagField(record, cols.emergency); err != nil {
		return model.Sample{}, err
	}
	if s.Timing, err = intField(record, cols.timing, "timing"); err != nil {
		return model.Sample{}, err
	}
	return s, nil
}

// intField returns 0 for optional columns the header does not carry.
func intField(record []string, idx int, name string) (int, error) {
	if idx < 0 {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(record[idx]))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", name, record[idx])
	}
	return v, nil
}

// flagField accepts either a count or a boolean.
func flagField(record []string, idx int) (int, error) {
	if idx < 0 {
		return 0, nil
	}
	raw := strings.TrimSpace(record[idx])
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid emergency value %q", record[idx])
	}
	if b {
		return 1, nil
	}
	return 0, nil
}
