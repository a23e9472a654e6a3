// Package postfilter rejects implausible detections after deduplication using
// a pipeline of independently toggleable heuristic stages: size, aspect ratio,
// area, and class-specific limits.
package postfilter

import (
	"log/slog"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/detect"
)

// ClassRule holds per-class bounding limits applied by the class-specific
// stage. Classes without a rule pass the stage untouched.
type ClassRule struct {
	MinWidth  float64
	MaxWidth  float64
	MinHeight float64
	MaxHeight float64
	MinAspect float64 // height/width lower bound
	MaxAspect float64 // height/width upper bound
}

// Config holds the postfilter thresholds and stage toggles.
type Config struct {
	SizeEnabled   bool
	AspectEnabled bool
	AreaEnabled   bool
	ClassEnabled  bool

	MinSize   float64 // Minimum width and height in pixels
	MaxSize   float64 // Maximum width and height in pixels
	MinAspect float64 // Minimum height/width ratio
	MaxAspect float64 // Maximum height/width ratio
	MinArea   float64 // Minimum area in square pixels
	MaxArea   float64 // Maximum area in square pixels

	ClassRules map[classes.Label]ClassRule
}

// DefaultConfig returns the standard thresholds for callout symbols.
// The wide text-label class is given loose width limits because legitimate
// instances are far wider than any other class's plausible range.
func DefaultConfig() Config {
	return Config{
		SizeEnabled:   true,
		AspectEnabled: true,
		AreaEnabled:   true,
		ClassEnabled:  true,
		MinSize:       12,
		MaxSize:       150,
		MinAspect:     0.3,
		MaxAspect:     3.0,
		MinArea:       400,
		MaxArea:       15000,
		ClassRules: map[classes.Label]ClassRule{
			classes.Detail:    squareRule(),
			classes.Elevation: squareRule(),
			classes.Section:   squareRule(),
			classes.TextLabel: {
				MinWidth:  15,
				MaxWidth:  500,
				MinHeight: 8,
				MaxHeight: 200,
				MinAspect: 0.02,
				MaxAspect: 2.0,
			},
		},
	}
}

// squareRule is the strict limit set for the square-ish reference callouts.
func squareRule() ClassRule {
	return ClassRule{
		MinWidth:  20,
		MaxWidth:  100,
		MinHeight: 20,
		MaxHeight: 100,
		MinAspect: 0.5,
		MaxAspect: 2.0,
	}
}

// Stats reports how many detections each stage removed.
type Stats struct {
	Input           int `json:"input"`
	RemovedBySize   int `json:"removed_by_size"`
	RemovedByAspect int `json:"removed_by_aspect"`
	RemovedByArea   int `json:"removed_by_area"`
	RemovedByClass  int `json:"removed_by_class"`
	Output          int `json:"output"`
}

// Apply runs the filter pipeline over the deduplicated set. The wide
// text-label class is routed directly to the class-specific stage; all other
// classes pass through every enabled stage in order.
func Apply(dets []detect.Detection, cfg Config) ([]detect.Detection, Stats) {
	stats := Stats{Input: len(dets)}
	kept := make([]detect.Detection, 0, len(dets))

	for _, d := range dets {
		if keep(d, cfg, &stats) {
			kept = append(kept, d)
		}
	}

	stats.Output = len(kept)
	slog.Debug("Postfilter applied",
		"input", stats.Input,
		"removed_size", stats.RemovedBySize,
		"removed_aspect", stats.RemovedByAspect,
		"removed_area", stats.RemovedByArea,
		"removed_class", stats.RemovedByClass,
		"output", stats.Output)
	return kept, stats
}

func keep(d detect.Detection, cfg Config, stats *Stats) bool {
	w := d.Box.Width()
	h := d.Box.Height()

	if d.Class != classes.WideLabel {
		if cfg.SizeEnabled && !sizeOK(w, h, cfg) {
			stats.RemovedBySize++
			return false
		}
		if cfg.AspectEnabled && !aspectOK(w, h, cfg.MinAspect, cfg.MaxAspect) {
			stats.RemovedByAspect++
			return false
		}
		if cfg.AreaEnabled && !areaOK(w, h, cfg) {
			stats.RemovedByArea++
			return false
		}
	}

	if cfg.ClassEnabled && !classOK(d.Class, w, h, cfg.ClassRules) {
		stats.RemovedByClass++
		return false
	}
	return true
}

func sizeOK(w, h float64, cfg Config) bool {
	return w >= cfg.MinSize && h >= cfg.MinSize && w <= cfg.MaxSize && h <= cfg.MaxSize
}

// aspectOK checks the height/width ratio. Boxes with zero width or height are
// rejected here.
func aspectOK(w, h, minAspect, maxAspect float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	ratio := h / w
	return ratio >= minAspect && ratio <= maxAspect
}

func areaOK(w, h float64, cfg Config) bool {
	area := w * h
	return area >= cfg.MinArea && area <= cfg.MaxArea
}

func classOK(class classes.Label, w, h float64, rules map[classes.Label]ClassRule) bool {
	rule, ok := rules[class]
	if !ok {
		return true
	}
	if w < rule.MinWidth || w > rule.MaxWidth || h < rule.MinHeight || h > rule.MaxHeight {
		return false
	}
	return aspectOK(w, h, rule.MinAspect, rule.MaxAspect)
}
