// Package labels parses ground-truth annotation files. Each record is one
// line of "class_id center_x center_y width height" with the last four values
// normalized to [0,1] relative to the owning image's pixel dimensions.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/plansight/internal/classes"
	"github.com/MeKo-Tech/plansight/internal/geometry"
)

// Annotation is one ground-truth callout, denormalized to pixel coordinates at
// load time. Immutable once loaded.
type Annotation struct {
	Box   geometry.Box
	Class classes.Label
}

// ParseFile reads annotations from a label file. Malformed records are skipped
// with a warning; only I/O failures are reported as errors.
func ParseFile(path string, imgWidth, imgHeight int, table *classes.Table) ([]Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close label file", "path", path, "error", err)
		}
	}()
	anns, err := Parse(f, imgWidth, imgHeight, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read label file %s: %w", path, err)
	}
	return anns, nil
}

// Parse reads annotation records from r, denormalizing with the given image
// dimensions. Unparsable or zero-area records are skipped, not fatal.
func Parse(r io.Reader, imgWidth, imgHeight int, table *classes.Table) ([]Annotation, error) {
	var anns []Annotation
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ann, ok := parseRecord(line, imgWidth, imgHeight, table)
		if !ok {
			slog.Warn("Skipping malformed annotation record", "line", lineNo, "record", line)
			continue
		}
		anns = append(anns, ann)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return anns, nil
}

// parseRecord decodes one "class_id cx cy w h" record. The center/size values
// are normalized; the box is denormalized into pixel units here.
func parseRecord(line string, imgWidth, imgHeight int, table *classes.Table) (Annotation, bool) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Annotation{}, false
	}

	classID, err := strconv.Atoi(fields[0])
	if err != nil || classID < 0 {
		return Annotation{}, false
	}

	vals := make([]float64, 4)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 || v > 1 {
			return Annotation{}, false
		}
		vals[i] = v
	}

	w := vals[2] * float64(imgWidth)
	h := vals[3] * float64(imgHeight)
	if w <= 0 || h <= 0 {
		return Annotation{}, false
	}
	cx := vals[0] * float64(imgWidth)
	cy := vals[1] * float64(imgHeight)

	return Annotation{
		Box:   geometry.NewBoxXYWH(cx-w/2, cy-h/2, w, h),
		Class: table.FromID(classID),
	}, true
}
