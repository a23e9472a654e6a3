package tiler

import (
	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/geometry"
)

// Reproject maps a tile-local box into the full-image coordinate frame.
func Reproject(b geometry.Box, t Tile) geometry.Box {
	return b.Offset(float64(t.OffsetX), float64(t.OffsetY))
}

// ReprojectDetections returns copies of the detections with boxes expressed in
// full-image coordinates and the source tile recorded.
func ReprojectDetections(dets []detect.Detection, t Tile) []detect.Detection {
	if len(dets) == 0 {
		return nil
	}
	out := make([]detect.Detection, len(dets))
	for i, d := range dets {
		d.Box = Reproject(d.Box, t)
		d.TileIndex = t.Index
		out[i] = d
	}
	return out
}
