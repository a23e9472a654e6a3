package sampler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/geometry"
	"github.com/MeKo-Tech/plansight/internal/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fn(x, y, w, h float64, class classes.Label) labels.Annotation {
	return labels.Annotation{Box: geometry.NewBoxXYWH(x, y, w, h), Class: class}
}

func TestWeightsNormalized(t *testing.T) {
	w := Weights{ClassBalance: 2, SizeDiversity: 1, SpatialDiversity: 1, Uncertainty: 0}.Normalized()
	assert.InDelta(t, 0.5, w.ClassBalance, 1e-9)
	assert.InDelta(t, 0.25, w.SizeDiversity, 1e-9)
	assert.InDelta(t, 1.0, w.ClassBalance+w.SizeDiversity+w.SpatialDiversity+w.Uncertainty, 1e-9)

	// All-zero weights fall back to the even split.
	z := Weights{}.Normalized()
	assert.InDelta(t, 0.25, z.ClassBalance, 1e-9)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, SizeTiny, Categorize(900))
	assert.Equal(t, SizeSmall, Categorize(32*32))
	assert.Equal(t, SizeMedium, Categorize(96*96))
	assert.Equal(t, SizeLarge, Categorize(256*256))
}

func TestSelectBudget(t *testing.T) {
	fns := []labels.Annotation{
		fn(0, 0, 30, 30, classes.Detail),
		fn(500, 500, 30, 30, classes.Detail),
		fn(1000, 1000, 30, 30, classes.Detail),
	}

	got := Select(fns, nil, 2000, 2000, DefaultWeights(), 2)
	assert.Len(t, got, 2)

	// Budget exceeding availability returns all candidates, not an error.
	got = Select(fns, nil, 2000, 2000, DefaultWeights(), 10)
	assert.Len(t, got, 3)
}

func TestSelectEmptyAndZeroBudget(t *testing.T) {
	assert.Nil(t, Select(nil, nil, 100, 100, DefaultWeights(), 5))
	assert.Nil(t, Select([]labels.Annotation{fn(0, 0, 10, 10, classes.Detail)}, nil, 100, 100, DefaultWeights(), 0))
}

func TestSelectClassBalancePrioritizesFrequentMisses(t *testing.T) {
	// Nine detail misses and one title miss; with class balance as the only
	// criterion, the first pick must be a detail.
	fns := make([]labels.Annotation, 0, 10)
	fns = append(fns, fn(0, 0, 30, 30, classes.Title))
	for i := range 9 {
		fns = append(fns, fn(float64(100+i*50), 100, 30, 30, classes.Detail))
	}

	w := Weights{ClassBalance: 1}
	got := Select(fns, nil, 2000, 2000, w, 1)
	require.Len(t, got, 1)
	assert.Equal(t, classes.Detail, got[0].Annotation.Class)
}

func TestSelectSizeDiversity(t *testing.T) {
	// Two tiny boxes and one large; with size diversity dominant, picks two
	// must span both size groups.
	fns := []labels.Annotation{
		fn(0, 0, 20, 20, classes.Detail),
		fn(100, 100, 20, 20, classes.Detail),
		fn(500, 500, 120, 120, classes.Detail),
	}

	w := Weights{SizeDiversity: 1}
	got := Select(fns, nil, 2000, 2000, w, 2)
	require.Len(t, got, 2)

	areas := map[SizeCategory]bool{}
	for _, e := range got {
		areas[e.SizeCategory] = true
	}
	assert.True(t, areas[SizeTiny])
	assert.True(t, areas[SizeMedium])
}

func TestSelectUncertaintySignal(t *testing.T) {
	// Two identical misses; a confident detection sits next to the second.
	fns := []labels.Annotation{
		fn(100, 100, 30, 30, classes.Detail),
		fn(1500, 1500, 30, 30, classes.Detail),
	}
	dets := []detect.Detection{
		{Box: geometry.NewBoxXYWH(1510, 1510, 30, 30), Class: classes.Detail, Confidence: 0.95},
	}

	w := Weights{Uncertainty: 1}
	got := Select(fns, dets, 2000, 2000, w, 1)
	require.Len(t, got, 1)
	assert.InDelta(t, 1500.0, got[0].Annotation.Box.MinX, 1e-9)
	assert.Greater(t, got[0].Score, 0.5)
}

func TestSelectRecordsScoreAndOrder(t *testing.T) {
	fns := []labels.Annotation{
		fn(0, 0, 30, 30, classes.Detail),
		fn(900, 900, 30, 30, classes.Detail),
		fn(450, 450, 30, 30, classes.Detail),
	}
	got := Select(fns, nil, 1000, 1000, DefaultWeights(), 3)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

// TestSelectSpatialDiversityBeatsRandom is the statistical diversity check:
// for tightly clustered same-size candidates and spatial diversity as the only
// criterion, the greedy picks must be farther apart than a random triple in at
// least 95% of trials.
func TestSelectSpatialDiversityBeatsRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const trials = 200
	wins := 0

	w := Weights{SpatialDiversity: 1}
	for range trials {
		// 10 identical-size boxes clustered within a 50px radius.
		fns := make([]labels.Annotation, 10)
		for i := range fns {
			angle := rng.Float64() * 2 * math.Pi
			radius := rng.Float64() * 50
			cx := 1000 + radius*math.Cos(angle)
			cy := 1000 + radius*math.Sin(angle)
			fns[i] = fn(cx-15, cy-15, 30, 30, classes.Detail)
		}

		got := Select(fns, nil, 2000, 2000, w, 3)
		require.Len(t, got, 3)

		sel := make([]labels.Annotation, 3)
		for i, e := range got {
			sel[i] = e.Annotation
		}
		randomPick := rng.Perm(10)[:3]
		rnd := []labels.Annotation{fns[randomPick[0]], fns[randomPick[1]], fns[randomPick[2]]}

		if meanPairwiseDistance(sel) > meanPairwiseDistance(rnd) {
			wins++
		}
	}

	assert.GreaterOrEqual(t, wins, trials*95/100,
		"greedy selection beat random in only %d/%d trials", wins, trials)
}

func meanPairwiseDistance(anns []labels.Annotation) float64 {
	sum := 0.0
	n := 0
	for i := range anns {
		for j := i + 1; j < len(anns); j++ {
			sum += geometry.CenterDistance(anns[i].Box, anns[j].Box)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
