package config

// Config represents the complete configuration for the plansight application.
// It covers all commands (detect, evaluate, sample) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Tiling configuration
	Tiling TilingConfig `mapstructure:"tiling" yaml:"tiling" json:"tiling"`

	// Detector configuration
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Cross-tile deduplication
	Dedupe DedupeConfig `mapstructure:"dedupe" yaml:"dedupe" json:"dedupe"`

	// Plausibility postfilter
	Filter FilterConfig `mapstructure:"filter" yaml:"filter" json:"filter"`

	// Ground-truth matching
	Match MatchConfig `mapstructure:"match" yaml:"match" json:"match"`

	// Hard-example selection
	Sampler SamplerConfig `mapstructure:"sampler" yaml:"sampler" json:"sampler"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// TilingConfig contains raster tiling settings.
type TilingConfig struct {
	TileSize int     `mapstructure:"tile_size" yaml:"tile_size" json:"tile_size"`
	Overlap  float64 `mapstructure:"overlap" yaml:"overlap" json:"overlap"`
}

// DetectorConfig contains symbol detection settings.
type DetectorConfig struct {
	ModelPath     string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	ConfThreshold float64 `mapstructure:"conf_threshold" yaml:"conf_threshold" json:"conf_threshold"`
	IoUThreshold  float64 `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
	InputSize     int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	NumThreads    int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	Workers       int     `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// DedupeConfig contains cross-tile suppression settings.
type DedupeConfig struct {
	IoUThreshold float64 `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
}

// FilterConfig contains plausibility postfilter settings.
type FilterConfig struct {
	SizeEnabled   bool    `mapstructure:"size_enabled" yaml:"size_enabled" json:"size_enabled"`
	AspectEnabled bool    `mapstructure:"aspect_enabled" yaml:"aspect_enabled" json:"aspect_enabled"`
	AreaEnabled   bool    `mapstructure:"area_enabled" yaml:"area_enabled" json:"area_enabled"`
	ClassEnabled  bool    `mapstructure:"class_enabled" yaml:"class_enabled" json:"class_enabled"`
	MinSize       float64 `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
	MaxSize       float64 `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	MinAspect     float64 `mapstructure:"min_aspect" yaml:"min_aspect" json:"min_aspect"`
	MaxAspect     float64 `mapstructure:"max_aspect" yaml:"max_aspect" json:"max_aspect"`
	MinArea       float64 `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
	MaxArea       float64 `mapstructure:"max_area" yaml:"max_area" json:"max_area"`
}

// MatchConfig contains ground-truth matching settings.
type MatchConfig struct {
	IoUThreshold float64 `mapstructure:"iou_threshold" yaml:"iou_threshold" json:"iou_threshold"`
}

// SamplerConfig contains hard-example selection settings.
type SamplerConfig struct {
	Budget           int     `mapstructure:"budget" yaml:"budget" json:"budget"`
	ClassBalance     float64 `mapstructure:"class_balance" yaml:"class_balance" json:"class_balance"`
	SizeDiversity    float64 `mapstructure:"size_diversity" yaml:"size_diversity" json:"size_diversity"`
	SpatialDiversity float64 `mapstructure:"spatial_diversity" yaml:"spatial_diversity" json:"spatial_diversity"`
	Uncertainty      float64 `mapstructure:"uncertainty" yaml:"uncertainty" json:"uncertainty"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}
