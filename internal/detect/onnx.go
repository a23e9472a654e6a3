package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/MeKo-Tech/plansight/internal/geometry"
	"github.com/yalue/onnxruntime_go"
	xdraw "golang.org/x/image/draw"
)

// ONNXConfig holds configuration for the ONNX-backed detector.
type ONNXConfig struct {
	ModelPath   string // Path to the detector model file
	InputSize   int    // Square model input size in pixels
	NumThreads  int    // Intra-op thread count (0 = runtime default)
	LibraryPath string // Path to the ONNX Runtime shared library ("" = env/default)
}

// DefaultONNXConfig returns sensible defaults for the ONNX detector.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		InputSize: 1024,
	}
}

// ONNXDetector runs an exported callout-detection model via ONNX Runtime.
// The model is treated as opaque: it is expected to emit rows of
// [x1, y1, x2, y2, confidence, class] in model-input coordinates.
type ONNXDetector struct {
	config     ONNXConfig
	session    *onnxruntime_go.DynamicAdvancedSession
	inputName  string
	outputName string
	mu         sync.Mutex
}

// NewONNXDetector loads the model and prepares an inference session.
func NewONNXDetector(config ONNXConfig) (*ONNXDetector, error) {
	if config.ModelPath == "" {
		return nil, errors.New("detector model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("detector model not accessible: %w", err)
	}
	if config.InputSize <= 0 {
		config.InputSize = DefaultONNXConfig().InputSize
	}

	if err := setupONNXEnvironment(config.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model has no inputs or outputs")
	}

	sessionOptions, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := sessionOptions.Destroy(); err != nil {
			slog.Warn("Failed to destroy session options", "error", err)
		}
	}()

	if config.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(config.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	slog.Debug("ONNX detector initialized",
		"model_path", config.ModelPath,
		"input_size", config.InputSize,
		"input", inputs[0].Name,
		"output", outputs[0].Name)

	return &ONNXDetector{
		config:     config,
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

// Close releases the inference session.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		if err := d.session.Destroy(); err != nil {
			slog.Warn("Failed to destroy detector session", "error", err)
		}
		d.session = nil
	}
	return nil
}

// Predict implements Detector. The image is letterboxed to the model input
// size, the model runs once, and output rows are mapped back to image
// coordinates. Rows below confThreshold are dropped; same-class rows
// overlapping above iouThreshold are suppressed.
func (d *ONNXDetector) Predict(ctx context.Context, img image.Image,
	confThreshold, iouThreshold float64,
) ([]RawDetection, error) {
	if img == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := letterbox(img, d.config.InputSize)
	data := normalizeNCHW(lb.image)

	inputTensor, err := onnxruntime_go.NewTensor(
		onnxruntime_go.NewShape(1, 3, int64(d.config.InputSize), int64(d.config.InputSize)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		if err := inputTensor.Destroy(); err != nil {
			slog.Warn("Failed to destroy input tensor", "error", err)
		}
	}()

	d.mu.Lock()
	session := d.session
	d.mu.Unlock()
	if session == nil {
		return nil, errors.New("detector session is closed")
	}

	outputs := []onnxruntime_go.Value{nil}
	if err := session.Run([]onnxruntime_go.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if err := outputs[0].Destroy(); err != nil {
			slog.Warn("Failed to destroy output tensor", "error", err)
		}
	}()

	floatTensor, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 output tensor, got %T", outputs[0])
	}

	raws := decodeRows(floatTensor.GetData(), floatTensor.GetShape(), confThreshold)
	raws = unLetterbox(raws, lb)
	return suppressRaw(raws, iouThreshold), nil
}

// letterboxResult records the transform used to fit an image into the square
// model input, so output boxes can be mapped back.
type letterboxResult struct {
	image image.Image
	scale float64
}

// letterbox scales the image to fit a size×size square, preserving aspect
// ratio, and pads the remainder with white (drawing background).
func letterbox(img image.Image, size int) letterboxResult {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	scale := 1.0
	if w > 0 && h > 0 {
		scale = math.Min(float64(size)/float64(w), float64(size)/float64(h))
	}
	dstW := int(math.Round(float64(w) * scale))
	dstH := int(math.Round(float64(h) * scale))
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, image.Rect(0, 0, dstW, dstH), img, bounds, xdraw.Over, nil)

	return letterboxResult{image: dst, scale: scale}
}

// normalizeNCHW converts an RGBA image to a [1,3,H,W] float32 buffer in [0,1].
func normalizeNCHW(img image.Image) []float32 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	plane := w * h
	data := make([]float32, 3*plane)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			data[i] = float32(r>>8) / 255.0
			data[plane+i] = float32(g>>8) / 255.0
			data[2*plane+i] = float32(b>>8) / 255.0
			i++
		}
	}
	return data
}

// decodeRows parses [N,6] output rows (x1, y1, x2, y2, confidence, class),
// tolerating a leading batch dimension.
func decodeRows(data []float32, shape []int64, confThreshold float64) []RawDetection {
	const rowLen = 6
	// Strip a leading batch dimension of 1 if present.
	dims := shape
	if len(dims) == 3 && dims[0] == 1 {
		dims = dims[1:]
	}
	if len(dims) != 2 || dims[1] != rowLen {
		slog.Warn("Unexpected detector output shape", "shape", shape)
		return nil
	}
	n := int(dims[0])
	if n*rowLen > len(data) {
		n = len(data) / rowLen
	}

	raws := make([]RawDetection, 0, n)
	for i := range n {
		row := data[i*rowLen : (i+1)*rowLen]
		conf := float64(row[4])
		if conf < confThreshold {
			continue
		}
		raws = append(raws, RawDetection{
			Box:        geometry.NewBox(float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])),
			ClassID:    int(row[5]),
			Confidence: conf,
		})
	}
	return raws
}

// unLetterbox maps boxes from model-input coordinates back to the original
// image frame.
func unLetterbox(raws []RawDetection, lb letterboxResult) []RawDetection {
	if lb.scale <= 0 || lb.scale == 1.0 {
		return raws
	}
	inv := 1.0 / lb.scale
	for i := range raws {
		b := raws[i].Box
		raws[i].Box = geometry.Box{
			MinX: b.MinX * inv,
			MinY: b.MinY * inv,
			MaxX: b.MaxX * inv,
			MaxY: b.MaxY * inv,
		}
	}
	return raws
}

// suppressRaw runs greedy same-class NMS over raw detections. Models exported
// with fused NMS produce few overlaps, but the host-side pass keeps the
// iouThreshold contract regardless of how the model was exported.
func suppressRaw(raws []RawDetection, iouThreshold float64) []RawDetection {
	if len(raws) <= 1 {
		return raws
	}
	sort.SliceStable(raws, func(i, j int) bool {
		return raws[i].Confidence > raws[j].Confidence
	})
	suppressed := make([]bool, len(raws))
	kept := make([]RawDetection, 0, len(raws))
	for a := range raws {
		if suppressed[a] {
			continue
		}
		kept = append(kept, raws[a])
		for b := a + 1; b < len(raws); b++ {
			if suppressed[b] || raws[a].ClassID != raws[b].ClassID {
				continue
			}
			if geometry.IoU(raws[a].Box, raws[b].Box) > iouThreshold {
				suppressed[b] = true
			}
		}
	}
	return kept
}

var (
	onnxInitOnce sync.Once
	onnxInitErr  error
)

// setupONNXEnvironment points onnxruntime_go at the shared library and
// initializes the runtime once per process. Safe for concurrent detector
// construction; every caller sees the outcome of the single attempt.
func setupONNXEnvironment(libraryPath string) error {
	onnxInitOnce.Do(func() {
		if onnxruntime_go.IsInitialized() {
			return
		}
		if libraryPath == "" {
			libraryPath = os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
		}
		if libraryPath == "" {
			switch runtime.GOOS {
			case "darwin":
				libraryPath = "libonnxruntime.dylib"
			case "windows":
				libraryPath = "onnxruntime.dll"
			default:
				libraryPath = "libonnxruntime.so"
			}
		}
		onnxruntime_go.SetSharedLibraryPath(libraryPath)
		if err := onnxruntime_go.InitializeEnvironment(); err != nil {
			onnxInitErr = fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
	})
	return onnxInitErr
}
