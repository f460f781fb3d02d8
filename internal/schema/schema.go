// Package schema implements column typing for tabular synthesis.
//
// The inferencer classifies every column of a real table as continuous,
// discrete, categorical or boolean and records the per-column constraints
// (observed bounds, observed category sets) that the sampler later
// enforces on synthetic output.
//
// Design constraints:
//   - Inference is a pure function of the input table and thresholds.
//   - A column that cannot be modeled (all-null, constant) is a hard
//     error; the caller must drop or repair it before training.
//   - Category sets keep first-seen order. That order is a fitted
//     parameter: it fixes the quantile-to-category mapping and must be
//     stable for reproducible sampling.
package schema

import (
	"fmt"
	"strings"

	"tabsynth/internal/table"
)

// Kind is the modeling class of a column.
type Kind int

const (
	Continuous Kind = iota
	Discrete
	Categorical
	Boolean
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Categorical:
		return "categorical"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is one schema entry. Exactly one exists per table column; the
// kind is immutable once inferred for a training run.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Min/Max are the observed bounds for continuous and discrete columns.
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	// Categories is the observed label set for categorical and boolean
	// columns, in first-seen order.
	Categories []string `json:"categories,omitempty"`
}

// Schema is the typed description of a table, in table column order.
type Schema struct {
	Columns []Column `json:"columns"`
}

// ColumnIndex returns the position of a named column, or -1.
func (s Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Error is raised when a column cannot be modeled at all.
type Error struct {
	Column string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// ParseBool parses the loose boolean spellings accepted across the
// pipeline (1/t/true/yes/y and 0/f/false/no/n, case-insensitive).
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

// CellString renders a cell the way inference and category matching see
// it. Typed cells collapse to the same canonical text used by
// table.Format.
func CellString(v any) string {
	return table.Format(v)
}
