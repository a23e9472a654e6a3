// Package sampler selects a diverse, budget-constrained subset of missed
// detections (false negatives) for human re-annotation. Selection is greedy
// over a weighted sum of class-balance, size-diversity, spatial-diversity and
// uncertainty scores.
package sampler

import (
	"log/slog"
	"math"
	"sort"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/geometry"
	"github.com/MeKo-Tech/plansight/internal/labels"
)

const (
	// sizeScale normalizes area distances when scoring size diversity.
	sizeScale = 5000.0
	// uncertaintyDecay is the distance (pixels) over which a nearby
	// detection's influence on the uncertainty score falls off.
	uncertaintyDecay = 100.0
)

// Weights controls the relative importance of the four selection criteria.
type Weights struct {
	ClassBalance     float64 `json:"class_balance"`
	SizeDiversity    float64 `json:"size_diversity"`
	SpatialDiversity float64 `json:"spatial_diversity"`
	Uncertainty      float64 `json:"uncertainty"`
}

// DefaultWeights returns an even split across the four criteria.
func DefaultWeights() Weights {
	return Weights{
		ClassBalance:     0.25,
		SizeDiversity:    0.25,
		SpatialDiversity: 0.25,
		Uncertainty:      0.25,
	}
}

// Normalized returns the weights scaled to sum to 1. An all-zero weight vector
// falls back to the default even split.
func (w Weights) Normalized() Weights {
	sum := w.ClassBalance + w.SizeDiversity + w.SpatialDiversity + w.Uncertainty
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		ClassBalance:     w.ClassBalance / sum,
		SizeDiversity:    w.SizeDiversity / sum,
		SpatialDiversity: w.SpatialDiversity / sum,
		Uncertainty:      w.Uncertainty / sum,
	}
}

// SizeCategory buckets a hard example by box area.
type SizeCategory string

// Size categories by area thresholds (px²): 32², 96², 256².
const (
	SizeTiny   SizeCategory = "tiny"
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
)

// Categorize maps a box area to its size category.
func Categorize(area float64) SizeCategory {
	switch {
	case area < 32*32:
		return SizeTiny
	case area < 96*96:
		return SizeSmall
	case area < 256*256:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// HardExample is a selected false negative, augmented for the re-annotation
// report.
type HardExample struct {
	Annotation   labels.Annotation
	Area         float64
	SizeCategory SizeCategory
	Score        float64
}

// Select greedily picks up to budget hard examples from the false-negative
// set. The detection set supplies the uncertainty signal: a miss whose center
// lies near a confident detection is one the detector almost found. When the
// budget exceeds availability, all candidates are returned.
func Select(falseNegatives []labels.Annotation, detections []detect.Detection,
	imgWidth, imgHeight int, weights Weights, budget int,
) []HardExample {
	if len(falseNegatives) == 0 || budget <= 0 {
		return nil
	}
	w := weights.Normalized()

	diagonal := math.Hypot(float64(imgWidth), float64(imgHeight))
	if diagonal <= 0 {
		diagonal = 1
	}

	// Class-balance and uncertainty are static per run; only the diversity
	// terms depend on the growing selected set.
	classScores := classBalanceScores(falseNegatives)
	candidates := make([]candidate, len(falseNegatives))
	for i, fn := range falseNegatives {
		candidates[i] = candidate{
			annotation:  fn,
			area:        fn.Box.Area(),
			center:      fn.Box.Center(),
			classScore:  classScores[fn.Class],
			uncertainty: uncertaintyScore(fn, detections),
		}
	}

	selected := make([]HardExample, 0, min(budget, len(candidates)))
	remaining := candidates

	for len(selected) < budget && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, c := range remaining {
			score := w.ClassBalance*c.classScore +
				w.SizeDiversity*sizeDiversityScore(c, selected) +
				w.SpatialDiversity*spatialDiversityScore(c, selected, diagonal) +
				w.Uncertainty*c.uncertainty
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		picked := remaining[bestIdx]
		selected = append(selected, HardExample{
			Annotation:   picked.annotation,
			Area:         picked.area,
			SizeCategory: Categorize(picked.area),
			Score:        bestScore,
		})
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Score > selected[j].Score
	})

	slog.Debug("Hard examples selected",
		"candidates", len(falseNegatives),
		"budget", budget,
		"selected", len(selected))
	return selected
}

type candidate struct {
	annotation  labels.Annotation
	area        float64
	center      geometry.Point
	classScore  float64
	uncertainty float64
}

// classBalanceScores gives each class a score proportional to its share of the
// total false-negative count, so systematically missed classes rank higher.
func classBalanceScores(falseNegatives []labels.Annotation) map[classes.Label]float64 {
	counts := make(map[classes.Label]int)
	for _, fn := range falseNegatives {
		counts[fn.Class]++
	}
	scores := make(map[classes.Label]float64, len(counts))
	total := float64(len(falseNegatives))
	for class, n := range counts {
		scores[class] = float64(n) / total
	}
	return scores
}

// sizeDiversityScore rewards candidates whose area is far from every already
// selected example's area. The first selection always scores 1.
func sizeDiversityScore(c candidate, selected []HardExample) float64 {
	if len(selected) == 0 {
		return 1.0
	}
	nearest := math.Inf(1)
	for _, s := range selected {
		if d := math.Abs(c.area - s.Area); d < nearest {
			nearest = d
		}
	}
	return math.Min(1.0, nearest/sizeScale)
}

// spatialDiversityScore rewards candidates far from every already selected
// example's center, normalized by the image diagonal.
func spatialDiversityScore(c candidate, selected []HardExample, diagonal float64) float64 {
	if len(selected) == 0 {
		return 1.0
	}
	nearest := math.Inf(1)
	for _, s := range selected {
		if d := c.center.Distance(s.Annotation.Box.Center()); d < nearest {
			nearest = d
		}
	}
	return math.Min(1.0, nearest/diagonal)
}

// uncertaintyScore is high when the candidate's center lies near a confident
// detection, decaying exponentially with distance and scaling with that
// detection's confidence.
func uncertaintyScore(fn labels.Annotation, detections []detect.Detection) float64 {
	center := fn.Box.Center()
	best := 0.0
	for _, d := range detections {
		dist := center.Distance(d.Box.Center())
		if score := d.Confidence * math.Exp(-dist/uncertaintyDecay); score > best {
			best = score
		}
	}
	return best
}
