// Package detect defines the detection data model and the interface to the
// learned callout detector. The detector itself is an external collaborator;
// this package only decodes its raw output into labeled detections.
package detect

import (
	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/geometry"
)

// NoTile marks a detection that was not produced by tiling.
const NoTile = -1

// RawDetection is a single box as reported by the detector, before the class
// index has been decoded. Coordinates are local to the image the detector saw.
type RawDetection struct {
	Box        geometry.Box
	ClassID    int
	Confidence float64
}

// Detection is a decoded detection. The box is expressed in the coordinate
// frame of the image the Class and Confidence refer to; reprojection replaces
// tile-local coordinates with global ones.
type Detection struct {
	Box        geometry.Box
	Class      classes.Label
	Confidence float64
	TileIndex  int
}

// Decode converts raw detector output into labeled detections. Unknown class
// indices map to synthetic unknown_<id> labels at this boundary.
func Decode(raws []RawDetection, table *classes.Table, tileIndex int) []Detection {
	if len(raws) == 0 {
		return nil
	}
	out := make([]Detection, 0, len(raws))
	for _, r := range raws {
		out = append(out, Detection{
			Box:        r.Box,
			Class:      table.FromID(r.ClassID),
			Confidence: r.Confidence,
			TileIndex:  tileIndex,
		})
	}
	return out
}
