// Package common holds small helpers shared across the pipeline packages.
package common

import (
	"fmt"
	"strings"
	"time"
)

// Lap is one named pipeline stage and its wall-clock duration.
type Lap struct {
	Name     string
	Duration time.Duration
}

// Stopwatch times the consecutive stages of a pipeline run. Each Lap call
// records the time since the previous lap (or since construction for the
// first one).
type Stopwatch struct {
	start time.Time
	last  time.Time
	laps  []Lap
}

// NewStopwatch starts timing immediately.
func NewStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now}
}

// Lap records the stage that just finished and returns its duration.
func (s *Stopwatch) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.laps = append(s.laps, Lap{Name: name, Duration: d})
	return d
}

// Laps returns the recorded stages in run order.
func (s *Stopwatch) Laps() []Lap {
	return s.laps
}

// Total returns the time from start to the most recent lap.
func (s *Stopwatch) Total() time.Duration {
	return s.last.Sub(s.start)
}

// String renders the laps as "tile=1ms detect=8ms (total 9ms)".
func (s *Stopwatch) String() string {
	parts := make([]string, 0, len(s.laps))
	for _, l := range s.laps {
		parts = append(parts, fmt.Sprintf("%s=%v", l.Name, l.Duration))
	}
	return fmt.Sprintf("%s (total %v)", strings.Join(parts, " "), s.Total())
}
