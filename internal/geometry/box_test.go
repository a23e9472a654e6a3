package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBoxOrdersCoordinates(t *testing.T) {
	b := NewBox(10, 20, 0, 5)
	assert.InDelta(t, 0.0, b.MinX, 1e-9)
	assert.InDelta(t, 5.0, b.MinY, 1e-9)
	assert.InDelta(t, 10.0, b.MaxX, 1e-9)
	assert.InDelta(t, 20.0, b.MaxY, 1e-9)
}

func TestNewBoxXYWH(t *testing.T) {
	b := NewBoxXYWH(5, 10, 30, 40)
	assert.InDelta(t, 30.0, b.Width(), 1e-9)
	assert.InDelta(t, 40.0, b.Height(), 1e-9)
	assert.InDelta(t, 1200.0, b.Area(), 1e-9)
	assert.Equal(t, Point{X: 20, Y: 30}, b.Center())

	// Negative dimensions collapse to an empty box at the anchor.
	e := NewBoxXYWH(5, 10, -3, -4)
	assert.True(t, e.Empty())
	assert.InDelta(t, 5.0, e.MinX, 1e-9)
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", NewBoxXYWH(0, 0, 10, 10), NewBoxXYWH(0, 0, 10, 10), 1.0},
		{"disjoint", NewBoxXYWH(0, 0, 10, 10), NewBoxXYWH(20, 20, 10, 10), 0.0},
		{"touching edges", NewBoxXYWH(0, 0, 10, 10), NewBoxXYWH(10, 0, 10, 10), 0.0},
		{"half overlap", NewBoxXYWH(0, 0, 10, 10), NewBoxXYWH(5, 0, 10, 10), 50.0 / 150.0},
		{"zero area both", NewBoxXYWH(0, 0, 0, 0), NewBoxXYWH(0, 0, 0, 0), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, IoU(tt.b, tt.a), 1e-9) // symmetry
		})
	}
}

func TestOffset(t *testing.T) {
	b := NewBoxXYWH(1, 2, 3, 4).Offset(100, 200)
	assert.InDelta(t, 101.0, b.MinX, 1e-9)
	assert.InDelta(t, 202.0, b.MinY, 1e-9)
	assert.InDelta(t, 3.0, b.Width(), 1e-9)
	assert.InDelta(t, 4.0, b.Height(), 1e-9)
}

func TestCenterDistance(t *testing.T) {
	a := NewBoxXYWH(0, 0, 10, 10)
	b := NewBoxXYWH(30, 40, 10, 10)
	assert.InDelta(t, 50.0, CenterDistance(a, b), 1e-9)
}

func TestToRectClamps(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	r := NewBox(-5, -5, 200, 50).ToRect(bounds)
	assert.Equal(t, image.Rect(0, 0, 100, 50), r)
}
