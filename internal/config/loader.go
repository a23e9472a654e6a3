package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "plansight"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PLANSIGHT"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader on a fresh viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load reads configuration from the search paths, environment variables and
// defaults. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshalAndValidate()
}

// LoadWithFile loads configuration from a specific file path. An empty path
// falls back to the standard search.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	return l.unmarshalAndValidate()
}

func (l *Loader) unmarshalAndValidate() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Set overrides a value in the configuration, taking precedence over files
// and environment variables. Used to push resolved CLI flags down.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	l.v.AddConfigPath("/etc/plansight")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "plansight"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "plansight"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	// Global settings
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	// Tiling defaults
	l.v.SetDefault("tiling.tile_size", defaults.Tiling.TileSize)
	l.v.SetDefault("tiling.overlap", defaults.Tiling.Overlap)

	// Detector defaults
	l.v.SetDefault("detector.model_path", defaults.Detector.ModelPath)
	l.v.SetDefault("detector.conf_threshold", defaults.Detector.ConfThreshold)
	l.v.SetDefault("detector.iou_threshold", defaults.Detector.IoUThreshold)
	l.v.SetDefault("detector.input_size", defaults.Detector.InputSize)
	l.v.SetDefault("detector.num_threads", defaults.Detector.NumThreads)
	l.v.SetDefault("detector.workers", defaults.Detector.Workers)

	// Dedupe defaults
	l.v.SetDefault("dedupe.iou_threshold", defaults.Dedupe.IoUThreshold)

	// Filter defaults
	l.v.SetDefault("filter.size_enabled", defaults.Filter.SizeEnabled)
	l.v.SetDefault("filter.aspect_enabled", defaults.Filter.AspectEnabled)
	l.v.SetDefault("filter.area_enabled", defaults.Filter.AreaEnabled)
	l.v.SetDefault("filter.class_enabled", defaults.Filter.ClassEnabled)
	l.v.SetDefault("filter.min_size", defaults.Filter.MinSize)
	l.v.SetDefault("filter.max_size", defaults.Filter.MaxSize)
	l.v.SetDefault("filter.min_aspect", defaults.Filter.MinAspect)
	l.v.SetDefault("filter.max_aspect", defaults.Filter.MaxAspect)
	l.v.SetDefault("filter.min_area", defaults.Filter.MinArea)
	l.v.SetDefault("filter.max_area", defaults.Filter.MaxArea)

	// Match defaults
	l.v.SetDefault("match.iou_threshold", defaults.Match.IoUThreshold)

	// Sampler defaults
	l.v.SetDefault("sampler.budget", defaults.Sampler.Budget)
	l.v.SetDefault("sampler.class_balance", defaults.Sampler.ClassBalance)
	l.v.SetDefault("sampler.size_diversity", defaults.Sampler.SizeDiversity)
	l.v.SetDefault("sampler.spatial_diversity", defaults.Sampler.SpatialDiversity)
	l.v.SetDefault("sampler.uncertainty", defaults.Sampler.Uncertainty)

	// Output defaults
	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)

	// Batch defaults
	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "plansight"))
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "plansight"))
	}

	paths = append(paths, "/etc/plansight")

	return paths
}
