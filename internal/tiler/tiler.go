// Package tiler splits oversized drawing pages into overlapping fixed-size
// windows the detector can consume, and reprojects per-tile results back into
// the full-image coordinate frame.
package tiler

import (
	"image"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
)

// Config holds tiling parameters.
type Config struct {
	TileSize int     // Square tile edge length in pixels
	Overlap  float64 // Fraction of tile overlap between neighbors, in [0,1)
}

// DefaultConfig returns the standard tiling parameters for construction
// drawing pages.
func DefaultConfig() Config {
	return Config{
		TileSize: 2048,
		Overlap:  0.25,
	}
}

// Tile is one window of a larger image. Offsets locate the tile's top-left
// corner in the full image. Tiles at the right/bottom edge of an image smaller
// than the tile size are zero-padded to exactly TileSize×TileSize.
type Tile struct {
	Image   image.Image
	OffsetX int
	OffsetY int
	Index   int
}

// Split cuts the image into a row-major grid of overlapping tiles whose union
// covers every pixel. An image smaller than the tile size in both dimensions
// produces a single padded tile; there are no error conditions.
func Split(img image.Image, cfg Config) []Tile {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	size := cfg.TileSize
	if size <= 0 {
		size = DefaultConfig().TileSize
	}
	overlap := cfg.Overlap
	if overlap < 0 || overlap >= 1 {
		overlap = 0
	}
	stride := int(float64(size) * (1 - overlap))
	if stride < 1 {
		stride = 1
	}

	xs := axisOffsets(w, size, stride)
	ys := axisOffsets(h, size, stride)

	tiles := make([]Tile, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			rect := image.Rect(bounds.Min.X+x, bounds.Min.Y+y, bounds.Min.X+x+size, bounds.Min.Y+y+size)
			crop := imaging.Crop(img, rect)
			if crop.Bounds().Dx() < size || crop.Bounds().Dy() < size {
				crop = padTile(crop, size)
			}
			tiles = append(tiles, Tile{
				Image:   crop,
				OffsetX: x,
				OffsetY: y,
				Index:   len(tiles),
			})
		}
	}

	slog.Debug("Image split into tiles",
		"width", w, "height", h,
		"tile_size", size, "stride", stride,
		"tiles", len(tiles))
	return tiles
}

// axisOffsets computes the tile anchor positions along one axis: a strided
// grid plus an explicit edge tile at length-size, so the last stride gap never
// leaves uncovered pixels.
func axisOffsets(length, size, stride int) []int {
	if length <= size {
		return []int{0}
	}
	offsets := make([]int, 0, length/stride+2)
	for x := 0; x <= length-size; x += stride {
		offsets = append(offsets, x)
	}
	if offsets[len(offsets)-1] != length-size {
		offsets = append(offsets, length-size)
	}
	return offsets
}

// padTile extends a crop to a size×size canvas, filling the remainder with
// zero-valued pixels.
func padTile(crop *image.NRGBA, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, crop.Bounds(), crop, image.Point{}, draw.Src)
	return dst
}
