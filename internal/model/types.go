// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Config defines watch settings.
type Config struct {
	LogPath      string
	Executable   string
	Args         []string
	Dir          string
	Input        string
	OutputPath   string
	Interval     time.Duration
	Header       string
	GroupColumn  string
	TimingColumn string
	GroupLabel   string
	DebugLogPath string
}

// Sample is one row of the simulation log.
type Sample struct {
	Cycle     int
	Group     string
	Arrived   int
	Passed    int
	Waiting   int
	Emergency int
	Timing    int
}

// HasEmergency reports whether emergency vehicles were counted for the row.
func (s Sample) HasEmergency() bool {
	return s.Emergency != 0
}

// GroupRecord holds the derived timing stats for one group.
type GroupRecord struct {
	Baseline int
	Last     int
	Mean     float64
	Max      int
	Samples  int
	Adaptive int
}

// ProcessState is the lifecycle state of the simulation process.
type ProcessState int

const (
	Idle ProcessState = iota
	Running
	Stopped
	Finished
)

func (s ProcessState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("ProcessState(%d)", int(s))
	}
}
