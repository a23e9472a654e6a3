// Package testutil generates synthetic drawing pages and provides a simple
// pixel-based detector so the pipeline can be exercised end to end without a
// trained model.
package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/plansight/internal/geometry"
)

// Mark is one synthetic callout placed on a generated page.
type Mark struct {
	Box     geometry.Box
	ClassID int
}

// GenerateDrawing creates a white page of the given size with solid black
// rectangles at the mark positions, mimicking callout symbols on a scan.
func GenerateDrawing(width, height int, marks []Mark) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	for _, m := range marks {
		rect := m.Box.ToRect(img.Bounds())
		draw.Draw(img, rect, &image.Uniform{color.Black}, image.Point{}, draw.Src)
	}
	return img
}

// GridMarks lays out n square marks of the given size on a regular grid with
// the given spacing, starting at (startX, startY).
func GridMarks(n int, size, spacing, startX, startY float64, perRow, classID int) []Mark {
	if perRow <= 0 {
		perRow = n
	}
	marks := make([]Mark, 0, n)
	for i := range n {
		col := i % perRow
		row := i / perRow
		x := startX + float64(col)*spacing
		y := startY + float64(row)*spacing
		marks = append(marks, Mark{
			Box:     geometry.NewBoxXYWH(x, y, size, size),
			ClassID: classID,
		})
	}
	return marks
}
