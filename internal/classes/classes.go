// Package classes defines the closed set of callout class labels and the
// mapping from raw detector class indices to labels.
package classes

import (
	"fmt"
	"strings"
)

// Label identifies a callout class.
type Label string

// Known callout classes. The set is fixed per deployment; indices reported by
// the detector map into this set via a Table.
const (
	Detail     Label = "detail"
	Elevation  Label = "elevation"
	Section    Label = "section"
	Title      Label = "title"
	TextLabel  Label = "text_label"
	NorthArrow Label = "north_arrow"
	Revision   Label = "revision"
)

// WideLabel is the class whose legitimate instances are far wider than other
// classes' plausible range. The postfilter routes it around the generic
// size/aspect/area stages.
const WideLabel = TextLabel

const unknownPrefix = "unknown_"

// Table maps detector class indices to labels.
type Table struct {
	names []Label
}

// DefaultTable returns the standard class table for construction-drawing
// callouts, indexed by detector class id.
func DefaultTable() *Table {
	return &Table{names: []Label{
		Detail,
		Elevation,
		Section,
		Title,
		TextLabel,
		NorthArrow,
		Revision,
	}}
}

// NewTable builds a class table from an ordered list of class names.
// Empty input falls back to the default table.
func NewTable(names []string) *Table {
	if len(names) == 0 {
		return DefaultTable()
	}
	labels := make([]Label, len(names))
	for i, n := range names {
		labels[i] = Label(n)
	}
	return &Table{names: labels}
}

// Len returns the number of known classes.
func (t *Table) Len() int { return len(t.names) }

// Labels returns a copy of the ordered label list.
func (t *Table) Labels() []Label {
	out := make([]Label, len(t.names))
	copy(out, t.names)
	return out
}

// FromID maps a detector class index to a label. Out-of-range or negative
// indices map to a synthetic unknown_<id> label instead of failing, so unseen
// classes cannot corrupt per-class bookkeeping for known classes.
func (t *Table) FromID(id int) Label {
	if id < 0 || id >= len(t.names) {
		return Label(fmt.Sprintf("%s%d", unknownPrefix, id))
	}
	return t.names[id]
}

// ID returns the index of a label in the table, or -1 if not present.
func (t *Table) ID(l Label) int {
	for i, n := range t.names {
		if n == l {
			return i
		}
	}
	return -1
}

// IsUnknown reports whether a label is a synthetic unknown_<id> label.
func IsUnknown(l Label) bool {
	return strings.HasPrefix(string(l), unknownPrefix)
}
