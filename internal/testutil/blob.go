package testutil

import (
	"context"
	"image"

	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/geometry"
)

// BlobDetector is a deterministic stand-in for the learned detector: it finds
// 4-connected dark regions in a tile and reports their bounding boxes. Good
// enough to drive pipeline tests over pages built with GenerateDrawing.
type BlobDetector struct {
	ClassID    int     // class id assigned to every blob
	Confidence float64 // confidence assigned to every blob
	MinPixels  int     // components smaller than this are ignored
	Threshold  uint8   // gray level below which a pixel counts as dark
}

// NewBlobDetector returns a detector tuned for the solid marks produced by
// GenerateDrawing.
func NewBlobDetector(classID int, confidence float64) *BlobDetector {
	return &BlobDetector{
		ClassID:    classID,
		Confidence: confidence,
		MinPixels:  16,
		Threshold:  128,
	}
}

// Predict implements detect.Detector.
func (b *BlobDetector) Predict(ctx context.Context, img image.Image,
	confThreshold, _ float64,
) ([]detect.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Confidence < confThreshold {
		return nil, nil
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := make([]bool, w*h)
	for y := range h {
		for x := range w {
			r, g, bl, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray := (r + g + bl) / 3 >> 8
			mask[y*w+x] = gray < uint32(b.Threshold)
		}
	}

	var raws []detect.RawDetection
	visited := make([]bool, w*h)
	for y := range h {
		for x := range w {
			idx := y*w + x
			if !mask[idx] || visited[idx] {
				continue
			}
			box, count := floodFill(mask, visited, w, h, x, y)
			if count < b.MinPixels {
				continue
			}
			raws = append(raws, detect.RawDetection{
				Box:        box,
				ClassID:    b.ClassID,
				Confidence: b.Confidence,
			})
		}
	}
	return raws, nil
}

// floodFill walks one 4-connected component and returns its bounding box and
// pixel count.
func floodFill(mask, visited []bool, w, h, startX, startY int) (geometry.Box, int) {
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	count := 0

	stack := []int{startY*w + startX}
	visited[startY*w+startX] = true

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%w, idx/w
		count++

		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}

		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			nidx := ny*w + nx
			if mask[nidx] && !visited[nidx] {
				visited[nidx] = true
				stack = append(stack, nidx)
			}
		}
	}

	// Bounding box spans the full extent of the component's pixels.
	return geometry.NewBox(float64(minX), float64(minY), float64(maxX+1), float64(maxY+1)), count
}
