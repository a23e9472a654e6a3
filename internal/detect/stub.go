package detect

import (
	"context"
	"image"
	"sync/atomic"
)

// Stub is a scripted Detector for tests. Every Predict call returns the same
// raw detections, filtered by the confidence threshold, or the primed error.
type Stub struct {
	Raws []RawDetection
	Err  error

	calls atomic.Int64
}

// Predict implements Detector.
func (s *Stub) Predict(ctx context.Context, _ image.Image, confThreshold, _ float64) ([]RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	var out []RawDetection
	for _, r := range s.Raws {
		if r.Confidence >= confThreshold {
			out = append(out, r)
		}
	}
	return out, nil
}

// Calls reports how many times Predict ran.
func (s *Stub) Calls() int {
	return int(s.calls.Load())
}
