package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopwatchLaps(t *testing.T) {
	sw := NewStopwatch()
	time.Sleep(time.Millisecond)
	d := sw.Lap("tile")
	assert.Greater(t, d, time.Duration(0))
	sw.Lap("detect")

	laps := sw.Laps()
	require.Len(t, laps, 2)
	assert.Equal(t, "tile", laps[0].Name)
	assert.Equal(t, d, laps[0].Duration)
	assert.Equal(t, "detect", laps[1].Name)
	assert.GreaterOrEqual(t, sw.Total(), d)
}

func TestStopwatchTotalCoversAllLaps(t *testing.T) {
	sw := NewStopwatch()
	sum := sw.Lap("dedupe")
	sum += sw.Lap("filter")
	assert.Equal(t, sum, sw.Total())
}

func TestStopwatchString(t *testing.T) {
	sw := NewStopwatch()
	sw.Lap("dedupe")
	s := sw.String()
	assert.Contains(t, s, "dedupe=")
	assert.Contains(t, s, "total")
}
