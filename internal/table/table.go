// Package table holds the in-memory tabular representation shared by the
// schema inferencer, the synthesizer and the metrics suite, plus readers
// for CSV files and HTML pages and a CSV writer.
//
// A Table is column-ordered and row-major. Cells are loosely typed:
// readers produce string cells (empty cells become nil), the generator
// produces typed cells (float64, int64, string, bool). Format converts
// any cell back to its canonical text form for serialization and
// signature comparison.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is an ordered set of named columns and their rows.
//
// Invariants:
//   - every row has exactly len(Columns) cells
//   - column names are unique after normalization
type Table struct {
	Columns []string
	Rows    [][]any
}

// New returns an empty table with the given column order.
func New(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// ColumnIndex returns the position of a named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds one row. The cell count must match the column count.
func (t *Table) AppendRow(row []any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table: row has %d cells, want %d", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Col returns a copy of column i as a cell slice.
func (t *Table) Col(i int) []any {
	out := make([]any, len(t.Rows))
	for r := range t.Rows {
		out[r] = t.Rows[r][i]
	}
	return out
}

// Format converts a cell to its canonical text form. nil renders as the
// empty string; floats use the shortest round-trip representation.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// ParseFloat converts a cell to float64. Returns false for nil cells and
// unparseable text.
func ParseFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
