package match

import (
	"github.com/MeKo-Tech/plansight/internal/classes"
	"gonum.org/v1/gonum/stat"
)

// ClassMetrics holds accuracy figures restricted to one class.
type ClassMetrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall"    yaml:"recall"`
	F1        float64 `json:"f1"        yaml:"f1"`
	TP        int     `json:"tp"        yaml:"tp"`
	FP        int     `json:"fp"        yaml:"fp"`
	FN        int     `json:"fn"        yaml:"fn"`
	GTCount   int     `json:"gt_count"  yaml:"gt_count"`
}

// Metrics is the full accuracy report for one matcher run. Every figure is
// defined as 0 when its denominator is 0, so empty inputs degrade gracefully.
type Metrics struct {
	Precision float64                         `json:"precision"  yaml:"precision"`
	Recall    float64                         `json:"recall"     yaml:"recall"`
	F1        float64                         `json:"f1"         yaml:"f1"`
	TP        int                             `json:"tp"         yaml:"tp"`
	FP        int                             `json:"fp"         yaml:"fp"`
	FN        int                             `json:"fn"         yaml:"fn"`
	GTTotal   int                             `json:"gt_total"   yaml:"gt_total"`
	DetTotal  int                             `json:"det_total"  yaml:"det_total"`
	MeanIoU   float64                         `json:"mean_iou"   yaml:"mean_iou"`
	StdDevIoU float64                         `json:"stddev_iou" yaml:"stddev_iou"`
	ByClass   map[classes.Label]*ClassMetrics `json:"by_class"   yaml:"by_class"`
}

// Compute derives precision/recall/F1 overall and per class from a match
// result, plus the IoU distribution of the true positives.
func Compute(res Result) Metrics {
	tp := len(res.TruePositives)
	fp := len(res.FalsePositives)
	fn := len(res.FalseNegatives)

	m := Metrics{
		TP:       tp,
		FP:       fp,
		FN:       fn,
		GTTotal:  tp + fn,
		DetTotal: tp + fp,
		ByClass:  make(map[classes.Label]*ClassMetrics),
	}
	m.Precision, m.Recall, m.F1 = prf(tp, fp, fn)

	if tp > 0 {
		ious := make([]float64, tp)
		for i, p := range res.TruePositives {
			ious[i] = p.IoU
		}
		m.MeanIoU, m.StdDevIoU = stat.MeanStdDev(ious, nil)
		if tp == 1 {
			m.StdDevIoU = 0
		}
	}

	for _, p := range res.TruePositives {
		m.class(p.Detection.Class).TP++
	}
	for _, d := range res.FalsePositives {
		m.class(d.Class).FP++
	}
	for _, a := range res.FalseNegatives {
		m.class(a.Class).FN++
	}
	for _, cm := range m.ByClass {
		cm.GTCount = cm.TP + cm.FN
		cm.Precision, cm.Recall, cm.F1 = prf(cm.TP, cm.FP, cm.FN)
	}

	return m
}

func (m *Metrics) class(label classes.Label) *ClassMetrics {
	cm, ok := m.ByClass[label]
	if !ok {
		cm = &ClassMetrics{}
		m.ByClass[label] = cm
	}
	return cm
}

// prf computes precision, recall and F1 with zero denominators yielding 0.
func prf(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
