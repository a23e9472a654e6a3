package detect

import (
	"testing"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	table := classes.DefaultTable()
	raws := []RawDetection{
		{Box: geometry.NewBoxXYWH(0, 0, 30, 30), ClassID: 0, Confidence: 0.9},
		{Box: geometry.NewBoxXYWH(50, 50, 20, 20), ClassID: 4, Confidence: 0.7},
		{Box: geometry.NewBoxXYWH(100, 100, 10, 10), ClassID: 42, Confidence: 0.6},
	}

	dets := Decode(raws, table, 3)
	require.Len(t, dets, 3)

	assert.Equal(t, classes.Detail, dets[0].Class)
	assert.Equal(t, classes.TextLabel, dets[1].Class)
	assert.Equal(t, classes.Label("unknown_42"), dets[2].Class)
	assert.True(t, classes.IsUnknown(dets[2].Class))

	for _, d := range dets {
		assert.Equal(t, 3, d.TileIndex)
	}
}

func TestDecodeEmpty(t *testing.T) {
	assert.Nil(t, Decode(nil, classes.DefaultTable(), NoTile))
}

func TestDecodeRows(t *testing.T) {
	// Two rows, one below the confidence threshold.
	data := []float32{
		10, 20, 40, 60, 0.9, 2,
		5, 5, 15, 15, 0.1, 0,
	}
	raws := decodeRows(data, []int64{1, 2, 6}, 0.25)
	require.Len(t, raws, 1)
	assert.Equal(t, 2, raws[0].ClassID)
	assert.InDelta(t, 0.9, raws[0].Confidence, 1e-6)
	assert.InDelta(t, 10.0, raws[0].Box.MinX, 1e-6)
	assert.InDelta(t, 60.0, raws[0].Box.MaxY, 1e-6)
}

func TestDecodeRowsBadShape(t *testing.T) {
	assert.Nil(t, decodeRows([]float32{1, 2, 3}, []int64{3}, 0))
}

func TestSuppressRawClassIsolation(t *testing.T) {
	raws := []RawDetection{
		{Box: geometry.NewBoxXYWH(0, 0, 10, 10), ClassID: 0, Confidence: 0.9},
		{Box: geometry.NewBoxXYWH(0, 0, 10, 10), ClassID: 1, Confidence: 0.8},
		{Box: geometry.NewBoxXYWH(1, 1, 10, 10), ClassID: 0, Confidence: 0.7},
	}
	kept := suppressRaw(raws, 0.5)
	// The class-1 box survives despite IoU 1.0 with the class-0 winner.
	require.Len(t, kept, 2)
	assert.Equal(t, 0, kept[0].ClassID)
	assert.Equal(t, 1, kept[1].ClassID)
}
