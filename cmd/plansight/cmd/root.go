// Package cmd implements the plansight command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/plansight/internal/config"
	"github.com/MeKo-Tech/plansight/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "plansight",
	Short: "Callout symbol detection for construction drawings",
	Long: `plansight finds callout symbols (detail, elevation and section marks,
title blocks, labels) on large construction-drawing rasters.

It tiles oversized sheets for the detector, reprojects and deduplicates the
per-tile results, filters implausible boxes, and can evaluate runs against
ground-truth labels or select hard examples for re-annotation.

Examples:
  plansight detect sheet.png --model callouts.onnx
  plansight evaluate sheets/*.png --labels-dir labels/ --model callouts.onnx
  plansight sample sheet.png --labels sheet.txt --model callouts.onnx --budget 25`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/plansight, /etc/plansight)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		setupLogging(globalConfig)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// initConfig loads the configuration and pushes changed CLI flags on top.
func initConfig(cmd *cobra.Command) error {
	configLoader = config.NewLoader()

	if cmd.Flags().Changed("verbose") {
		verbose, _ := cmd.Flags().GetBool("verbose")
		configLoader.Set("verbose", verbose)
	}
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		configLoader.Set("log_level", level)
	}

	var err error
	globalConfig, err = configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	return nil
}

// setupLogging installs the default structured logger. Reports go to stdout,
// so logs go to stderr.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return globalConfig
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "plansight %s\n", version.String())
	},
}
