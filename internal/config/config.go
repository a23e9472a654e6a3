// Package config loads and validates application configuration from files,
// environment variables, and defaults.
package config

import (
	"fmt"

	"github.com/MeKo-Tech/plansight/internal/pipeline"
	"github.com/MeKo-Tech/plansight/internal/postfilter"
	"github.com/MeKo-Tech/plansight/internal/sampler"
	"github.com/MeKo-Tech/plansight/internal/tiler"
)

// DefaultConfig returns a configuration with sensible defaults for all
// settings.
func DefaultConfig() *Config {
	tiling := tiler.DefaultConfig()
	filter := postfilter.DefaultConfig()
	weights := sampler.DefaultWeights()

	return &Config{
		LogLevel: "info",
		Verbose:  false,
		Tiling: TilingConfig{
			TileSize: tiling.TileSize,
			Overlap:  tiling.Overlap,
		},
		Detector: DetectorConfig{
			ConfThreshold: 0.25,
			IoUThreshold:  0.5,
			InputSize:     1024,
			NumThreads:    0,
			Workers:       0,
		},
		Dedupe: DedupeConfig{IoUThreshold: 0.5},
		Filter: FilterConfig{
			SizeEnabled:   filter.SizeEnabled,
			AspectEnabled: filter.AspectEnabled,
			AreaEnabled:   filter.AreaEnabled,
			ClassEnabled:  filter.ClassEnabled,
			MinSize:       filter.MinSize,
			MaxSize:       filter.MaxSize,
			MinAspect:     filter.MinAspect,
			MaxAspect:     filter.MaxAspect,
			MinArea:       filter.MinArea,
			MaxArea:       filter.MaxArea,
		},
		Match: MatchConfig{IoUThreshold: 0.5},
		Sampler: SamplerConfig{
			Budget:           50,
			ClassBalance:     weights.ClassBalance,
			SizeDiversity:    weights.SizeDiversity,
			SpatialDiversity: weights.SpatialDiversity,
			Uncertainty:      weights.Uncertainty,
		},
		Output: OutputConfig{Format: "json"},
		Batch:  BatchConfig{Workers: 4},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Tiling.TileSize <= 0 {
		return fmt.Errorf("tiling.tile_size must be positive, got %d", c.Tiling.TileSize)
	}
	if c.Tiling.Overlap < 0 || c.Tiling.Overlap >= 1 {
		return fmt.Errorf("tiling.overlap must be in [0, 1), got %v", c.Tiling.Overlap)
	}
	if err := validateUnit("detector.conf_threshold", c.Detector.ConfThreshold); err != nil {
		return err
	}
	if err := validateUnit("detector.iou_threshold", c.Detector.IoUThreshold); err != nil {
		return err
	}
	if err := validateUnit("dedupe.iou_threshold", c.Dedupe.IoUThreshold); err != nil {
		return err
	}
	if err := validateUnit("match.iou_threshold", c.Match.IoUThreshold); err != nil {
		return err
	}
	if c.Sampler.Budget < 0 {
		return fmt.Errorf("sampler.budget must not be negative, got %d", c.Sampler.Budget)
	}
	for name, w := range map[string]float64{
		"sampler.class_balance":     c.Sampler.ClassBalance,
		"sampler.size_diversity":    c.Sampler.SizeDiversity,
		"sampler.spatial_diversity": c.Sampler.SpatialDiversity,
		"sampler.uncertainty":       c.Sampler.Uncertainty,
	} {
		if w < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, w)
		}
	}
	if c.Output.Format != pipeline.FormatJSON && c.Output.Format != pipeline.FormatYAML {
		return fmt.Errorf("output.format must be %q or %q, got %q",
			pipeline.FormatJSON, pipeline.FormatYAML, c.Output.Format)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	return nil
}

func validateUnit(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %v", name, v)
	}
	return nil
}

// PipelineOptions translates the configuration into pipeline options.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Tiling = tiler.Config{
		TileSize: c.Tiling.TileSize,
		Overlap:  c.Tiling.Overlap,
	}
	opts.ConfThreshold = c.Detector.ConfThreshold
	opts.IoUThreshold = c.Detector.IoUThreshold
	opts.DedupeIoU = c.Dedupe.IoUThreshold
	opts.MatchIoU = c.Match.IoUThreshold
	if c.Detector.Workers > 0 {
		opts.Workers = c.Detector.Workers
	}
	opts.Postfilter = c.PostfilterConfig()
	opts.SamplerWeights = sampler.Weights{
		ClassBalance:     c.Sampler.ClassBalance,
		SizeDiversity:    c.Sampler.SizeDiversity,
		SpatialDiversity: c.Sampler.SpatialDiversity,
		Uncertainty:      c.Sampler.Uncertainty,
	}
	opts.SampleBudget = c.Sampler.Budget
	return opts
}

// PostfilterConfig translates the filter section into postfilter settings,
// keeping the default class-specific rules.
func (c *Config) PostfilterConfig() postfilter.Config {
	cfg := postfilter.DefaultConfig()
	cfg.SizeEnabled = c.Filter.SizeEnabled
	cfg.AspectEnabled = c.Filter.AspectEnabled
	cfg.AreaEnabled = c.Filter.AreaEnabled
	cfg.ClassEnabled = c.Filter.ClassEnabled
	cfg.MinSize = c.Filter.MinSize
	cfg.MaxSize = c.Filter.MaxSize
	cfg.MinAspect = c.Filter.MinAspect
	cfg.MaxAspect = c.Filter.MaxAspect
	cfg.MinArea = c.Filter.MinArea
	cfg.MaxArea = c.Filter.MaxArea
	return cfg
}
