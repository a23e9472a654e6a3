package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/plansight/internal/labels"
	"github.com/MeKo-Tech/plansight/internal/match"
	"github.com/MeKo-Tech/plansight/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ImagePair couples a drawing with its ground-truth label file.
type ImagePair struct {
	ImagePath string
	LabelPath string
}

// BatchItem is the per-image outcome of a batch evaluation. A failed image
// carries its error and contributes nothing to the aggregate.
type BatchItem struct {
	Pair    ImagePair
	Result  match.Result
	Metrics match.Metrics
	Width   int
	Height  int
	Err     error
}

// EvaluateBatch processes every image/label pair concurrently and evaluates
// each against its ground truth. Per-image failures are recorded, not fatal.
func (p *Pipeline) EvaluateBatch(ctx context.Context, pairs []ImagePair, workers int) []BatchItem {
	if workers <= 0 {
		workers = 1
	}

	items := make([]BatchItem, len(pairs))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, pair := range pairs {
		g.Go(func() error {
			items[i] = p.evaluateOne(ctx, pair)
			if items[i].Err != nil {
				slog.Warn("Image evaluation failed",
					"image", pair.ImagePath, "error", items[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

// Aggregate folds the successful items of a batch into one combined metric
// set. Returns the number of images that contributed.
func Aggregate(items []BatchItem) (match.Metrics, int) {
	var combined match.Result
	images := 0
	for _, item := range items {
		if item.Err != nil {
			continue
		}
		images++
		combined.TruePositives = append(combined.TruePositives, item.Result.TruePositives...)
		combined.FalsePositives = append(combined.FalsePositives, item.Result.FalsePositives...)
		combined.FalseNegatives = append(combined.FalseNegatives, item.Result.FalseNegatives...)
	}
	return match.Compute(combined), images
}

func (p *Pipeline) evaluateOne(ctx context.Context, pair ImagePair) BatchItem {
	item := BatchItem{Pair: pair}

	img, meta, err := utils.LoadImage(pair.ImagePath)
	if err != nil {
		item.Err = fmt.Errorf("loading image: %w", err)
		return item
	}
	item.Width = meta.Width
	item.Height = meta.Height

	res, err := p.ProcessImage(ctx, img)
	if err != nil {
		item.Err = fmt.Errorf("processing image: %w", err)
		return item
	}

	anns, err := labels.ParseFile(pair.LabelPath, meta.Width, meta.Height, p.table)
	if err != nil {
		item.Err = fmt.Errorf("loading labels: %w", err)
		return item
	}

	item.Result, item.Metrics = p.Evaluate(res.Detections, anns)
	return item
}
