package detect

import (
	"context"
	"image"
)

// Detector is the opaque learned detector. Given an image (typically one
// tile), it returns raw boxes in that image's local coordinates. The
// implementation must be deterministic for fixed thresholds so downstream
// suppression and filtering are reproducible.
type Detector interface {
	Predict(ctx context.Context, img image.Image, confThreshold, iouThreshold float64) ([]RawDetection, error)
}

// Func adapts a plain function to the Detector interface.
type Func func(ctx context.Context, img image.Image, confThreshold, iouThreshold float64) ([]RawDetection, error)

// Predict implements Detector.
func (f Func) Predict(ctx context.Context, img image.Image, confThreshold, iouThreshold float64) ([]RawDetection, error) {
	return f(ctx, img, confThreshold, iouThreshold)
}
