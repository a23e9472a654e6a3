// Package match computes greedy IoU-based one-to-one matching between a
// detection set and a ground-truth annotation set, and derives accuracy
// metrics from the result.
package match

import (
	"log/slog"

	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/geometry"
	"github.com/MeKo-Tech/plansight/internal/labels"
)

// DefaultIoUThreshold is the minimum overlap for a detection to claim a
// ground-truth annotation.
const DefaultIoUThreshold = 0.5

// Pair is one true-positive match.
type Pair struct {
	Detection   detect.Detection
	GroundTruth labels.Annotation
	IoU         float64
}

// Result partitions both input sets exactly: every detection is either a true
// positive or a false positive, and every annotation is either matched by a
// true positive or listed as a false negative.
type Result struct {
	TruePositives  []Pair
	FalsePositives []detect.Detection
	FalseNegatives []labels.Annotation
}

// Match greedily pairs detections with not-yet-matched same-class annotations.
// Detections are visited in input order; each one claims the unmatched
// annotation with the highest IoU, provided it reaches the threshold. A box
// never matches an annotation of a different class.
func Match(dets []detect.Detection, anns []labels.Annotation, iouThreshold float64) Result {
	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}

	var res Result
	matched := make([]bool, len(anns))

	for _, d := range dets {
		bestIdx := -1
		bestIoU := 0.0
		for i, a := range anns {
			if matched[i] || a.Class != d.Class {
				continue
			}
			if iou := geometry.IoU(d.Box, a.Box); iou > bestIoU {
				bestIoU = iou
				bestIdx = i
			}
		}
		if bestIdx >= 0 && bestIoU >= iouThreshold {
			matched[bestIdx] = true
			res.TruePositives = append(res.TruePositives, Pair{
				Detection:   d,
				GroundTruth: anns[bestIdx],
				IoU:         bestIoU,
			})
		} else {
			res.FalsePositives = append(res.FalsePositives, d)
		}
	}

	for i, a := range anns {
		if !matched[i] {
			res.FalseNegatives = append(res.FalseNegatives, a)
		}
	}

	slog.Debug("Ground-truth matching",
		"detections", len(dets),
		"annotations", len(anns),
		"tp", len(res.TruePositives),
		"fp", len(res.FalsePositives),
		"fn", len(res.FalseNegatives))
	return res
}
