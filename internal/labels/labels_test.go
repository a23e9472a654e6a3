package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDenormalizes(t *testing.T) {
	// A 100x100 box centered at (500, 400) on a 1000x800 image.
	in := "0 0.5 0.5 0.1 0.125\n"
	anns, err := Parse(strings.NewReader(in), 1000, 800, classes.DefaultTable())
	require.NoError(t, err)
	require.Len(t, anns, 1)

	a := anns[0]
	assert.Equal(t, classes.Detail, a.Class)
	assert.InDelta(t, 450.0, a.Box.MinX, 1e-9)
	assert.InDelta(t, 350.0, a.Box.MinY, 1e-9)
	assert.InDelta(t, 100.0, a.Box.Width(), 1e-9)
	assert.InDelta(t, 100.0, a.Box.Height(), 1e-9)
}

func TestParseSkipsMalformedRecords(t *testing.T) {
	in := strings.Join([]string{
		"0 0.5 0.5 0.1 0.1",       // valid
		"not a record",            // junk
		"1 0.5 0.5 0.1",           // too few fields
		"2 1.5 0.5 0.1 0.1",       // out-of-range coordinate
		"x 0.5 0.5 0.1 0.1",       // bad class id
		"-1 0.5 0.5 0.1 0.1",      // negative class id
		"3 0.5 0.5 0.0 0.1",       // zero-area box
		"",                        // blank line
		"# trailing comment line", // comment
		"1 0.25 0.25 0.05 0.05",   // valid
	}, "\n")

	anns, err := Parse(strings.NewReader(in), 1000, 1000, classes.DefaultTable())
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, classes.Detail, anns[0].Class)
	assert.Equal(t, classes.Elevation, anns[1].Class)
}

func TestParseUnknownClassID(t *testing.T) {
	anns, err := Parse(strings.NewReader("42 0.5 0.5 0.1 0.1\n"), 100, 100, classes.DefaultTable())
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, classes.Label("unknown_42"), anns[0].Class)
}

func TestParseEmpty(t *testing.T) {
	anns, err := Parse(strings.NewReader(""), 100, 100, classes.DefaultTable())
	require.NoError(t, err)
	assert.Empty(t, anns)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 0.5 0.5 0.2 0.2\n"), 0o600))

	anns, err := ParseFile(path, 500, 500, classes.DefaultTable())
	require.NoError(t, err)
	assert.Len(t, anns, 1)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("/nonexistent/labels.txt", 100, 100, classes.DefaultTable())
	assert.Error(t, err)
}
