package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/plansight/internal/config"
	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/pipeline"
	"github.com/MeKo-Tech/plansight/internal/utils"
	"github.com/spf13/cobra"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect [images...]",
	Short: "Detect callout symbols on drawing rasters",
	Long: `Run the detection pipeline over one or more drawing images and emit the
surviving detections as a report.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  plansight detect sheet.png --model callouts.onnx
  plansight detect sheets/*.png --model callouts.onnx --format yaml
  plansight detect sheet.tif --model callouts.onnx --output sheet.json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input images provided")
		}

		cfg := GetConfig()
		applyDetectFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" && len(args) > 1 {
			return errors.New("--output requires a single input image")
		}

		detector, err := buildDetector(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = detector.Close() }()

		p, err := pipeline.NewBuilder().
			WithDetector(detector).
			WithOptions(cfg.PipelineOptions()).
			Build()
		if err != nil {
			return err
		}

		for _, path := range args {
			img, _, err := utils.LoadImage(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}

			res, err := p.ProcessImage(cmd.Context(), img)
			if err != nil {
				return fmt.Errorf("processing %s: %w", path, err)
			}

			data, err := pipeline.Marshal(pipeline.NewDetectionReport(res), cfg.Output.Format)
			if err != nil {
				return err
			}
			if err := writeReport(cmd, data, outputFile); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().String("model", "", "path to the ONNX detection model")
	detectCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	detectCmd.Flags().String("format", "", "output format (json, yaml)")
	detectCmd.Flags().Int("tile-size", 0, "tile edge length in pixels")
	detectCmd.Flags().Float64("overlap", -1, "tile overlap fraction in [0, 1)")
	detectCmd.Flags().Float64("confidence", -1, "detector confidence threshold")
	detectCmd.Flags().Int("workers", 0, "parallel tile workers")

	rootCmd.AddCommand(detectCmd)
}

// applyDetectFlags copies changed detect flags onto the configuration.
func applyDetectFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("model") {
		cfg.Detector.ModelPath, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("tile-size") {
		cfg.Tiling.TileSize, _ = cmd.Flags().GetInt("tile-size")
	}
	if cmd.Flags().Changed("overlap") {
		cfg.Tiling.Overlap, _ = cmd.Flags().GetFloat64("overlap")
	}
	if cmd.Flags().Changed("confidence") {
		cfg.Detector.ConfThreshold, _ = cmd.Flags().GetFloat64("confidence")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Detector.Workers, _ = cmd.Flags().GetInt("workers")
	}
}

// buildDetector constructs the ONNX detector from the configuration.
func buildDetector(cfg *config.Config) (*detect.ONNXDetector, error) {
	if cfg.Detector.ModelPath == "" {
		return nil, errors.New("no detection model configured (use --model or detector.model_path)")
	}
	return detect.NewONNXDetector(detect.ONNXConfig{
		ModelPath:  cfg.Detector.ModelPath,
		InputSize:  cfg.Detector.InputSize,
		NumThreads: cfg.Detector.NumThreads,
	})
}

// writeReport writes a serialized report to the output file or stdout.
func writeReport(cmd *cobra.Command, data []byte, outputFile string) error {
	if outputFile == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
		return err
	}
	if err := os.WriteFile(outputFile, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", outputFile, err)
	}
	return nil
}

// labelPathFor derives the ground-truth label path for an image: same base
// name with a .txt extension, in labelsDir when given.
func labelPathFor(imagePath, labelsDir string) string {
	base := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath)) + ".txt"
	if labelsDir != "" {
		return filepath.Join(labelsDir, base)
	}
	return filepath.Join(filepath.Dir(imagePath), base)
}
