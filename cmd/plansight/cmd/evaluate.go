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
	"github.com/spf13/cobra"
)

// evaluateCmd represents the evaluate command.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [images...]",
	Short: "Evaluate detections against ground-truth labels",
	Long: `Run the detection pipeline over annotated drawings and compare the results
with their ground-truth label files (normalized "class cx cy w h" records).

Label files are matched to images by base name: sheet.png pairs with
sheet.txt, either next to the image or under --labels-dir.

A previously saved detection report can be evaluated without a model via
--detections together with --labels.

Examples:
  plansight evaluate sheets/*.png --model callouts.onnx
  plansight evaluate sheet.png --labels-dir labels/ --model callouts.onnx
  plansight evaluate --detections report.json --labels sheet.txt`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyDetectFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		if detFile, _ := cmd.Flags().GetString("detections"); detFile != "" {
			return evaluateSavedReport(cmd, cfg, detFile)
		}
		if len(args) == 0 {
			return errors.New("no input images provided")
		}

		labelsDir, _ := cmd.Flags().GetString("labels-dir")
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

		pairs := make([]pipeline.ImagePair, 0, len(args))
		for _, path := range args {
			pairs = append(pairs, pipeline.ImagePair{
				ImagePath: path,
				LabelPath: labelPathFor(path, labelsDir),
			})
		}

		items := p.EvaluateBatch(cmd.Context(), pairs, cfg.Batch.Workers)
		metrics, images := pipeline.Aggregate(items)
		if images == 0 {
			return errors.New("no image could be evaluated")
		}
		if images < len(pairs) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d of %d images failed\n",
				len(pairs)-images, len(pairs))
		}

		report := pipeline.MetricsReport{Images: images, Metrics: metrics}
		data, err := pipeline.Marshal(report, cfg.Output.Format)
		if err != nil {
			return err
		}
		return writeReport(cmd, data, outputFile)
	},
}

// evaluateSavedReport scores a saved detection report against one label file,
// without running the detector.
func evaluateSavedReport(cmd *cobra.Command, cfg *config.Config, detFile string) error {
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

	res := match.Match(report.ToDetections(), anns, cfg.Match.IoUThreshold)
	out := pipeline.MetricsReport{Images: 1, Metrics: match.Compute(res)}

	encoded, err := pipeline.Marshal(out, cfg.Output.Format)
	if err != nil {
		return err
	}
	outputFile, _ := cmd.Flags().GetString("output")
	return writeReport(cmd, encoded, outputFile)
}

func init() {
	evaluateCmd.Flags().String("model", "", "path to the ONNX detection model")
	evaluateCmd.Flags().String("detections", "", "saved detection report to evaluate instead of running the model")
	evaluateCmd.Flags().String("labels", "", "ground-truth label file (with --detections)")
	evaluateCmd.Flags().String("labels-dir", "", "directory containing ground-truth label files")
	evaluateCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	evaluateCmd.Flags().String("format", "", "output format (json, yaml)")
	evaluateCmd.Flags().Int("tile-size", 0, "tile edge length in pixels")
	evaluateCmd.Flags().Float64("overlap", -1, "tile overlap fraction in [0, 1)")
	evaluateCmd.Flags().Float64("confidence", -1, "detector confidence threshold")
	evaluateCmd.Flags().Int("workers", 0, "parallel tile workers")

	rootCmd.AddCommand(evaluateCmd)
}
