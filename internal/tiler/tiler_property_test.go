package tiler

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAxisOffsets_FullCoverage verifies that the anchor grid covers every
// pixel along an axis for arbitrary lengths, tile sizes and overlaps.
func TestAxisOffsets_FullCoverage(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tile anchors leave no gaps", prop.ForAll(
		func(length, size int, overlap float64) bool {
			stride := int(float64(size) * (1 - overlap))
			if stride < 1 {
				stride = 1
			}
			offsets := axisOffsets(length, size, stride)
			if len(offsets) == 0 || offsets[0] != 0 {
				return false
			}
			for i := 1; i < len(offsets); i++ {
				if offsets[i]-offsets[i-1] > size {
					return false // gap between consecutive tiles
				}
			}
			return offsets[len(offsets)-1]+size >= length
		},
		gen.IntRange(1, 20000),
		gen.IntRange(32, 4096),
		gen.Float64Range(0, 0.95),
	))

	properties.Property("anchors never start past the image edge", prop.ForAll(
		func(length, size int, overlap float64) bool {
			stride := int(float64(size) * (1 - overlap))
			if stride < 1 {
				stride = 1
			}
			for _, off := range axisOffsets(length, size, stride) {
				if off < 0 {
					return false
				}
				if length > size && off > length-size {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20000),
		gen.IntRange(32, 4096),
		gen.Float64Range(0, 0.95),
	))

	properties.TestingRun(t)
}
