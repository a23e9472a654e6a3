package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2048, cfg.Tiling.TileSize)
	assert.InDelta(t, 0.25, cfg.Tiling.Overlap, 1e-9)
	assert.InDelta(t, 0.25, cfg.Detector.ConfThreshold, 1e-9)
	assert.InDelta(t, 0.5, cfg.Dedupe.IoUThreshold, 1e-9)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero tile size",
			mutate:  func(c *Config) { c.Tiling.TileSize = 0 },
			wantErr: "tiling.tile_size",
		},
		{
			name:    "overlap of one",
			mutate:  func(c *Config) { c.Tiling.Overlap = 1.0 },
			wantErr: "tiling.overlap",
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.Tiling.Overlap = -0.1 },
			wantErr: "tiling.overlap",
		},
		{
			name:    "confidence above one",
			mutate:  func(c *Config) { c.Detector.ConfThreshold = 1.5 },
			wantErr: "detector.conf_threshold",
		},
		{
			name:    "negative dedupe threshold",
			mutate:  func(c *Config) { c.Dedupe.IoUThreshold = -0.2 },
			wantErr: "dedupe.iou_threshold",
		},
		{
			name:    "negative budget",
			mutate:  func(c *Config) { c.Sampler.Budget = -1 },
			wantErr: "sampler.budget",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Sampler.Uncertainty = -0.5 },
			wantErr: "sampler.uncertainty",
		},
		{
			name:    "unknown output format",
			mutate:  func(c *Config) { c.Output.Format = "xml" },
			wantErr: "output.format",
		},
		{
			name:    "negative batch workers",
			mutate:  func(c *Config) { c.Batch.Workers = -2 },
			wantErr: "batch.workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiling.TileSize = 1024
	cfg.Tiling.Overlap = 0.1
	cfg.Detector.ConfThreshold = 0.4
	cfg.Detector.Workers = 8
	cfg.Dedupe.IoUThreshold = 0.6
	cfg.Match.IoUThreshold = 0.45
	cfg.Sampler.Budget = 25
	cfg.Filter.MinSize = 10

	opts := cfg.PipelineOptions()
	assert.Equal(t, 1024, opts.Tiling.TileSize)
	assert.InDelta(t, 0.1, opts.Tiling.Overlap, 1e-9)
	assert.InDelta(t, 0.4, opts.ConfThreshold, 1e-9)
	assert.Equal(t, 8, opts.Workers)
	assert.InDelta(t, 0.6, opts.DedupeIoU, 1e-9)
	assert.InDelta(t, 0.45, opts.MatchIoU, 1e-9)
	assert.Equal(t, 25, opts.SampleBudget)
	assert.InDelta(t, 10.0, opts.Postfilter.MinSize, 1e-9)
}

func TestPostfilterConfigKeepsClassRules(t *testing.T) {
	cfg := DefaultConfig()
	pf := cfg.PostfilterConfig()
	assert.NotEmpty(t, pf.ClassRules)
}
