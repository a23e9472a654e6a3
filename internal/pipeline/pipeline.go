// Package pipeline wires tiling, detection, deduplication and filtering into
// a single per-image flow, and exposes evaluation and hard-example selection
// over the results.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/common"
	"github.com/MeKo-Tech/plansight/internal/dedupe"
	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/labels"
	"github.com/MeKo-Tech/plansight/internal/match"
	"github.com/MeKo-Tech/plansight/internal/postfilter"
	"github.com/MeKo-Tech/plansight/internal/sampler"
	"github.com/MeKo-Tech/plansight/internal/tiler"
)

// Options holds every tunable of the per-image pipeline.
type Options struct {
	Tiling         tiler.Config
	ConfThreshold  float64 // Detector confidence threshold
	IoUThreshold   float64 // Detector-level NMS threshold
	DedupeIoU      float64 // Cross-tile suppression threshold
	MatchIoU       float64 // Ground-truth matching threshold
	Workers        int     // Parallel tile workers (0 = NumCPU)
	Postfilter     postfilter.Config
	SamplerWeights sampler.Weights
	SampleBudget   int
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		Tiling:         tiler.DefaultConfig(),
		ConfThreshold:  0.25,
		IoUThreshold:   0.5,
		DedupeIoU:      dedupe.DefaultIoUThreshold,
		MatchIoU:       match.DefaultIoUThreshold,
		Workers:        runtime.NumCPU(),
		Postfilter:     postfilter.DefaultConfig(),
		SamplerWeights: sampler.DefaultWeights(),
		SampleBudget:   50,
	}
}

// Pipeline runs the full detection flow for one image at a time.
type Pipeline struct {
	detector detect.Detector
	table    *classes.Table
	opts     Options
}

// Builder assembles a Pipeline.
type Builder struct {
	detector detect.Detector
	table    *classes.Table
	opts     Options
}

// NewBuilder creates a builder with default options and the default class
// table.
func NewBuilder() *Builder {
	return &Builder{
		table: classes.DefaultTable(),
		opts:  DefaultOptions(),
	}
}

// WithDetector sets the detector implementation. Required.
func (b *Builder) WithDetector(d detect.Detector) *Builder {
	b.detector = d
	return b
}

// WithClassTable overrides the class table.
func (b *Builder) WithClassTable(t *classes.Table) *Builder {
	if t != nil {
		b.table = t
	}
	return b
}

// WithOptions replaces the full option set.
func (b *Builder) WithOptions(opts Options) *Builder {
	b.opts = opts
	return b
}

// WithTiling sets the tiling parameters.
func (b *Builder) WithTiling(cfg tiler.Config) *Builder {
	b.opts.Tiling = cfg
	return b
}

// WithConfidenceThreshold sets the detector confidence threshold.
func (b *Builder) WithConfidenceThreshold(t float64) *Builder {
	b.opts.ConfThreshold = t
	return b
}

// WithWorkers sets the parallel tile worker count.
func (b *Builder) WithWorkers(n int) *Builder {
	b.opts.Workers = n
	return b
}

// WithPostfilter sets the postfilter configuration.
func (b *Builder) WithPostfilter(cfg postfilter.Config) *Builder {
	b.opts.Postfilter = cfg
	return b
}

// Build validates and constructs the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.detector == nil {
		return nil, errors.New("pipeline requires a detector")
	}
	return &Pipeline{
		detector: b.detector,
		table:    b.table,
		opts:     b.opts,
	}, nil
}

// Options returns a copy of the pipeline's options.
func (p *Pipeline) Options() Options { return p.opts }

// ClassTable returns the pipeline's class table.
func (p *Pipeline) ClassTable() *classes.Table { return p.table }

// Result holds the surviving detections for one image plus diagnostics.
type Result struct {
	Width          int
	Height         int
	TileCount      int
	Detections     []detect.Detection
	FilterStats    postfilter.Stats
	StageTimes     []common.Lap
	ProcessingTime time.Duration
}

// ProcessImage runs tiling, per-tile detection, reprojection, cross-tile
// deduplication and postfiltering for one image. A detector failure on any
// tile fails the whole image; other images in a batch are unaffected.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}

	sw := common.NewStopwatch()
	bounds := img.Bounds()

	tiles := tiler.Split(img, p.opts.Tiling)
	sw.Lap("tile")

	dets, err := p.detectTiles(ctx, tiles)
	if err != nil {
		return nil, err
	}
	sw.Lap("detect")

	deduped := dedupe.CrossTileNMS(dets, p.opts.DedupeIoU)
	sw.Lap("dedupe")

	kept, stats := postfilter.Apply(deduped, p.opts.Postfilter)
	sw.Lap("filter")

	slog.Info("Image processed",
		"width", bounds.Dx(), "height", bounds.Dy(),
		"tiles", len(tiles),
		"raw_detections", len(dets),
		"after_dedupe", len(deduped),
		"after_filter", len(kept),
		"stages", sw.String())

	return &Result{
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		TileCount:      len(tiles),
		Detections:     kept,
		FilterStats:    stats,
		StageTimes:     sw.Laps(),
		ProcessingTime: sw.Total(),
	}, nil
}

// Evaluate matches detections against ground truth and derives metrics.
func (p *Pipeline) Evaluate(dets []detect.Detection, anns []labels.Annotation) (match.Result, match.Metrics) {
	res := match.Match(dets, anns, p.opts.MatchIoU)
	return res, match.Compute(res)
}

// HardExamples selects re-annotation candidates from a match result's false
// negatives, using the full detection set as uncertainty signal.
func (p *Pipeline) HardExamples(res match.Result, dets []detect.Detection, imgWidth, imgHeight int) []sampler.HardExample {
	return sampler.Select(res.FalseNegatives, dets, imgWidth, imgHeight,
		p.opts.SamplerWeights, p.opts.SampleBudget)
}
