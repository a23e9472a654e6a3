package detect

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/MeKo-Tech/plansight/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterboxLandscape(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	lb := letterbox(img, 100)

	assert.InDelta(t, 0.5, lb.scale, 1e-9)
	b := lb.image.Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 100, b.Dy())
}

func TestLetterboxUpscalesSmallTile(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	lb := letterbox(img, 100)
	assert.InDelta(t, 2.0, lb.scale, 1e-9)
}

func TestNormalizeNCHW(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})

	data := normalizeNCHW(img)
	require.Len(t, data, 3*2*2)

	// Red channel plane first, row-major.
	assert.InDelta(t, 1.0, data[0], 1e-6)
	assert.InDelta(t, 0.0, data[1], 1e-6)
	// Green plane.
	assert.InDelta(t, 0.0, data[4], 1e-6)
	assert.InDelta(t, 1.0, data[5], 1e-6)
}

func TestUnLetterbox(t *testing.T) {
	raws := []RawDetection{{Box: geometry.NewBox(10, 20, 30, 40), Confidence: 0.9}}
	out := unLetterbox(raws, letterboxResult{scale: 0.5})
	require.Len(t, out, 1)
	assert.InDelta(t, 20.0, out[0].Box.MinX, 1e-9)
	assert.InDelta(t, 40.0, out[0].Box.MinY, 1e-9)
	assert.InDelta(t, 60.0, out[0].Box.MaxX, 1e-9)
	assert.InDelta(t, 80.0, out[0].Box.MaxY, 1e-9)
}

func TestSetupONNXEnvironmentConcurrent(t *testing.T) {
	// Initialization happens once per process; concurrent callers must all
	// observe the outcome of that single attempt, whatever it was.
	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = setupONNXEnvironment("")
		}()
	}
	wg.Wait()

	for _, err := range errs[1:] {
		assert.Equal(t, errs[0], err)
	}
}

func TestNewONNXDetectorMissingModel(t *testing.T) {
	_, err := NewONNXDetector(ONNXConfig{})
	require.Error(t, err)

	_, err = NewONNXDetector(ONNXConfig{ModelPath: "/nonexistent/model.onnx"})
	require.Error(t, err)
}
