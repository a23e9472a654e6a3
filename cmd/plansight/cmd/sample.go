package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/config"
	"github.com/MeKo-Tech/plansight/internal/labels"
	"github.com/MeKo-Tech/plansight/internal/match"
	"github.com/MeKo-Tech/plansight/internal/pipeline"
	"github.com/MeKo-Tech/plansight/internal/sampler"
	"github.com/MeKo-Tech/plansight/internal/utils"
	"github.com/spf13/cobra"
)

// sampleCmd represents the sample command.
var sampleCmd = &cobra.Command{
	Use:   "sample [image]",
	Short: "Select hard examples for re-annotation",
	Long: `Run the detection pipeline over an annotated drawing and pick the most
informative missed annotations (false negatives) for re-annotation, balancing
class frequency, size diversity, spatial spread and detector uncertainty.

A previously saved detection report can be sampled without a model via
--detections together with --labels.

Examples:
  plansight sample sheet.png --labels sheet.txt --model callouts.onnx
  plansight sample sheet.png --model callouts.onnx --budget 25
  plansight sample --detections report.json --labels sheet.txt`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyDetectFlags(cmd, cfg)
		if cmd.Flags().Changed("budget") {
			cfg.Sampler.Budget, _ = cmd.Flags().GetInt("budget")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if detFile, _ := cmd.Flags().GetString("detections"); detFile != "" {
			return sampleSavedReport(cmd, cfg, detFile)
		}
		if len(args) == 0 {
			return errors.New("no input image provided")
		}
		imagePath := args[0]

		labelPath, _ := cmd.Flags().GetString("labels")
		if labelPath == "" {
			labelPath = labelPathFor(imagePath, "")
		}
		outputFile, _ := cmd.Flags().GetString("output")

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

		img, meta, err := utils.LoadImage(imagePath)
		if err != nil {
			return fmt.Errorf("loading %s: %w", imagePath, err)
		}

		res, err := p.ProcessImage(cmd.Context(), img)
		if err != nil {
			return fmt.Errorf("processing %s: %w", imagePath, err)
		}

		anns, err := labels.ParseFile(labelPath, meta.Width, meta.Height, p.ClassTable())
		if err != nil {
			return fmt.Errorf("loading labels: %w", err)
		}

		matchRes, _ := p.Evaluate(res.Detections, anns)
		examples := p.HardExamples(matchRes, res.Detections, meta.Width, meta.Height)

		report := pipeline.NewHardExampleReport(examples, cfg.Sampler.Budget)
		data, err := pipeline.Marshal(report, cfg.Output.Format)
		if err != nil {
			return err
		}
		return writeReport(cmd, data, outputFile)
	},
}

// sampleSavedReport selects hard examples from a saved detection report and a
// label file, without running the detector.
func sampleSavedReport(cmd *cobra.Command, cfg *config.Config, detFile string) error {
	labelPath, _ := cmd.Flags().GetString("labels")
	if labelPath == "" {
		return errors.New("--detections requires --labels")
	}

	data, err := os.ReadFile(detFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", detFile, err)
	}
	report, err := pipeline.ParseDetectionReport(data)
	if err != nil {
		return err
	}

	anns, err := labels.ParseFile(labelPath, report.Width, report.Height, classes.DefaultTable())
	if err != nil {
		return fmt.Errorf("loading labels: %w", err)
	}

	dets := report.ToDetections()
	res := match.Match(dets, anns, cfg.Match.IoUThreshold)
	weights := sampler.Weights{
		ClassBalance:     cfg.Sampler.ClassBalance,
		SizeDiversity:    cfg.Sampler.SizeDiversity,
		SpatialDiversity: cfg.Sampler.SpatialDiversity,
		Uncertainty:      cfg.Sampler.Uncertainty,
	}
	examples := sampler.Select(res.FalseNegatives, dets, report.Width, report.Height,
		weights, cfg.Sampler.Budget)

	out := pipeline.NewHardExampleReport(examples, cfg.Sampler.Budget)
	encoded, err := pipeline.Marshal(out, cfg.Output.Format)
	if err != nil {
		return err
	}
	outputFile, _ := cmd.Flags().GetString("output")
	return writeReport(cmd, encoded, outputFile)
}

func init() {
	sampleCmd.Flags().String("model", "", "path to the ONNX detection model")
	sampleCmd.Flags().String("detections", "", "saved detection report to sample from instead of running the model")
	sampleCmd.Flags().String("labels", "", "ground-truth label file (default: image name with .txt)")
	sampleCmd.Flags().Int("budget", 0, "maximum number of hard examples to select")
	sampleCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	sampleCmd.Flags().String("format", "", "output format (json, yaml)")
	sampleCmd.Flags().Int("tile-size", 0, "tile edge length in pixels")
	sampleCmd.Flags().Float64("overlap", -1, "tile overlap fraction in [0, 1)")
	sampleCmd.Flags().Float64("confidence", -1, "detector confidence threshold")
	sampleCmd.Flags().Int("workers", 0, "parallel tile workers")

	rootCmd.AddCommand(sampleCmd)
}
