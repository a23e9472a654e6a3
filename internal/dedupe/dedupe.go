// Package dedupe removes duplicate detections that arise when a callout
// straddles the overlap zone between tiles and is reported by more than one
// tile. Suppression is strictly class-aware: a box never competes against a
// box of a different class.
package dedupe

import (
	"log/slog"
	"sort"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/geometry"
)

// DefaultIoUThreshold is the overlap above which two same-class detections are
// considered duplicates.
const DefaultIoUThreshold = 0.5

// CrossTileNMS runs greedy per-class non-maximum suppression over the
// concatenated detections from all tiles of one image. The result is a subset
// of the input in which no two same-class survivors overlap above the
// threshold. Empty input yields empty output.
func CrossTileNMS(dets []detect.Detection, iouThreshold float64) []detect.Detection {
	if len(dets) <= 1 {
		return dets
	}
	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}

	byClass := make(map[classes.Label][]detect.Detection)
	order := make([]classes.Label, 0)
	for _, d := range dets {
		if _, seen := byClass[d.Class]; !seen {
			order = append(order, d.Class)
		}
		byClass[d.Class] = append(byClass[d.Class], d)
	}

	kept := make([]detect.Detection, 0, len(dets))
	for _, class := range order {
		kept = append(kept, suppress(byClass[class], iouThreshold)...)
	}

	slog.Debug("Cross-tile deduplication",
		"input", len(dets),
		"kept", len(kept),
		"iou_threshold", iouThreshold)
	return kept
}

// suppress performs greedy NMS within one class: repeatedly keep the
// highest-confidence remaining detection and discard everything overlapping it
// above the threshold.
func suppress(dets []detect.Detection, iouThreshold float64) []detect.Detection {
	if len(dets) <= 1 {
		return dets
	}

	sorted := make([]detect.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	suppressed := make([]bool, len(sorted))
	kept := make([]detect.Detection, 0, len(sorted))
	for a := range sorted {
		if suppressed[a] {
			continue
		}
		kept = append(kept, sorted[a])
		for b := a + 1; b < len(sorted); b++ {
			if suppressed[b] {
				continue
			}
			if geometry.IoU(sorted[a].Box, sorted[b].Box) > iouThreshold {
				suppressed[b] = true
			}
		}
	}
	return kept
}
