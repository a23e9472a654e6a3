package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/geometry"
	"github.com/MeKo-Tech/plansight/internal/match"
	"github.com/MeKo-Tech/plansight/internal/sampler"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Marshal.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DetectionRecord is the exchange form of one detection: bbox as
// [x, y, w, h] in full-image pixel coordinates.
type DetectionRecord struct {
	BBox       [4]float64 `json:"bbox"       yaml:"bbox,flow"`
	Class      string     `json:"class"      yaml:"class"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
}

// DetectionReport is the per-image detection output.
type DetectionReport struct {
	Width      int               `json:"width"      yaml:"width"`
	Height     int               `json:"height"     yaml:"height"`
	Detections []DetectionRecord `json:"detections" yaml:"detections"`
}

// NewDetectionReport converts a pipeline result into its exchange form.
func NewDetectionReport(res *Result) DetectionReport {
	records := make([]DetectionRecord, 0, len(res.Detections))
	for _, d := range res.Detections {
		records = append(records, DetectionRecord{
			BBox:       [4]float64{d.Box.MinX, d.Box.MinY, d.Box.Width(), d.Box.Height()},
			Class:      string(d.Class),
			Confidence: d.Confidence,
		})
	}
	return DetectionReport{
		Width:      res.Width,
		Height:     res.Height,
		Detections: records,
	}
}

// ToDetections converts a report back into pipeline detections, e.g. for
// evaluating a previously saved run.
func (r DetectionReport) ToDetections() []detect.Detection {
	dets := make([]detect.Detection, 0, len(r.Detections))
	for _, rec := range r.Detections {
		dets = append(dets, detect.Detection{
			Box:        geometry.NewBoxXYWH(rec.BBox[0], rec.BBox[1], rec.BBox[2], rec.BBox[3]),
			Class:      classes.Label(rec.Class),
			Confidence: rec.Confidence,
			TileIndex:  detect.NoTile,
		})
	}
	return dets
}

// MetricsReport is the evaluation output: overall metrics plus the number of
// images that contributed.
type MetricsReport struct {
	Images  int           `json:"images"  yaml:"images"`
	Metrics match.Metrics `json:"metrics" yaml:"metrics"`
}

// HardExampleRecord is the exchange form of one selected hard example.
type HardExampleRecord struct {
	BBox           [4]float64 `json:"bbox"            yaml:"bbox,flow"`
	Class          string     `json:"class"           yaml:"class"`
	SizeCategory   string     `json:"size_category"   yaml:"size_category"`
	SelectionScore float64    `json:"selection_score" yaml:"selection_score"`
}

// HardExampleReport is the hard-example selection output.
type HardExampleReport struct {
	Budget   int                 `json:"budget"   yaml:"budget"`
	Selected []HardExampleRecord `json:"selected" yaml:"selected"`
}

// NewHardExampleReport converts selected hard examples into exchange form.
func NewHardExampleReport(examples []sampler.HardExample, budget int) HardExampleReport {
	records := make([]HardExampleRecord, 0, len(examples))
	for _, ex := range examples {
		box := ex.Annotation.Box
		records = append(records, HardExampleRecord{
			BBox:           [4]float64{box.MinX, box.MinY, box.Width(), box.Height()},
			Class:          string(ex.Annotation.Class),
			SizeCategory:   string(ex.SizeCategory),
			SelectionScore: ex.Score,
		})
	}
	return HardExampleReport{Budget: budget, Selected: records}
}

// Marshal serializes a report in the requested format.
func Marshal(v any, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// ParseDetectionReport reads a saved detection report. JSON is a subset of
// YAML, so a single YAML decode covers both formats.
func ParseDetectionReport(data []byte) (DetectionReport, error) {
	var report DetectionReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return DetectionReport{}, fmt.Errorf("parsing detection report: %w", err)
	}
	return report, nil
}
