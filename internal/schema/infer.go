package schema

import (
	"strconv"
	"strings"

	"tabsynth/internal/table"
)

// DefaultCardinalityThreshold is the distinct-count cutoff used when the
// caller does not override it: at or below this many distinct values an
// integer column is modeled as discrete.
const DefaultCardinalityThreshold = 20

// InferOptions tunes the classifier.
type InferOptions struct {
	// CardinalityThreshold caps the distinct-value count for discrete
	// columns. 0 means DefaultCardinalityThreshold.
	CardinalityThreshold int
}

// Infer classifies every column of tbl and records its constraints.
//
// Classification order per column:
//  1. boolean: exactly two distinct values forming a truthy/falsy pair
//  2. numeric: discrete when integer-valued with few distinct values,
//     otherwise continuous
//  3. categorical: everything else
//
// Errors:
//   - *Error when a column is entirely empty or has a single constant
//     value. Such a column carries no variance information; the caller
//     must drop or impute it before training.
func Infer(tbl *table.Table, opts InferOptions) (Schema, error) {
	threshold := opts.CardinalityThreshold
	if threshold <= 0 {
		threshold = DefaultCardinalityThreshold
	}

	s := Schema{Columns: make([]Column, 0, len(tbl.Columns))}

	for ci, name := range tbl.Columns {
		col, err := inferColumn(tbl, ci, name, threshold)
		if err != nil {
			return Schema{}, err
		}
		s.Columns = append(s.Columns, col)
	}
	return s, nil
}

func inferColumn(tbl *table.Table, ci int, name string, threshold int) (Column, error) {
	var (
		values    []string // non-empty cells in row order
		distinct  = map[string]struct{}{}
		firstSeen []string
	)

	for _, row := range tbl.Rows {
		v := CellString(row[ci])
		if strings.TrimSpace(v) == "" {
			continue
		}
		values = append(values, v)
		if _, ok := distinct[v]; !ok {
			distinct[v] = struct{}{}
			firstSeen = append(firstSeen, v)
		}
	}

	if len(values) == 0 {
		return Column{}, &Error{Column: name, Reason: "no non-null values"}
	}
	if len(distinct) == 1 {
		return Column{}, &Error{Column: name, Reason: "constant value, nothing to model"}
	}

	// Boolean: exactly two distinct values covering both polarities.
	if len(distinct) == 2 {
		var sawTrue, sawFalse, allBool bool
		allBool = true
		for v := range distinct {
			b, ok := ParseBool(v)
			if !ok {
				allBool = false
				break
			}
			if b {
				sawTrue = true
			} else {
				sawFalse = true
			}
		}
		if allBool && sawTrue && sawFalse {
			return Column{Name: name, Kind: Boolean, Categories: firstSeen}, nil
		}
	}

	// Numeric: every non-empty cell parses as a float.
	allFloat := true
	allInt := true
	min, max := 0.0, 0.0
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			allFloat = false
			break
		}
		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if i == 0 || f < min {
			min = f
		}
		if i == 0 || f > max {
			max = f
		}
	}

	if allFloat {
		if allInt && len(distinct) <= threshold {
			return Column{Name: name, Kind: Discrete, Min: min, Max: max}, nil
		}
		return Column{Name: name, Kind: Continuous, Min: min, Max: max}, nil
	}

	return Column{Name: name, Kind: Categorical, Categories: firstSeen}, nil
}
