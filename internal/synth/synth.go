// Package synth orchestrates the synthesis pipeline: fit per-column
// marginals and the copula dependence model on a real table, then draw
// type-correct synthetic rows from the trained model.
//
// A TrainedModel is immutable after Fit. Generation is a pure function of
// (model, n, seed) and never mutates shared state, so one fitted model
// can serve concurrent Generate calls with distinct seeds.
package synth

import (
	"context"
	"errors"
	"fmt"
	"math"

	"tabsynth/internal/copula"
	"tabsynth/internal/marginal"
	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

// cancelCheckEvery is the row-batch granularity for cooperative
// cancellation during generation.
const cancelCheckEvery = 1024

// ConstraintViolationError reports a generated value outside its
// column's declared constraints. By construction the inverse transforms
// cannot produce one, so this indicates a transform bug and is fatal.
type ConstraintViolationError struct {
	Column string
	Value  any
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("synth: value %v violates constraints of column %q", e.Value, e.Column)
}

// TrainedModel couples the schema, the fitted marginals and the
// dependence model, plus fit metadata.
type TrainedModel struct {
	Schema schema.Schema

	marginals []marginal.Model
	dep       *copula.Model // nil: independent sampling fallback

	// FitRows and FitSeed record what the model was trained on.
	FitRows int
	FitSeed int64
}

// Fit trains a model on a real table. The schema must describe exactly
// the table's columns (use schema.Infer).
//
// Rows with a missing value in some column contribute the median
// quantile (0.5) for that column to the dependence estimate; the
// marginals themselves are fitted on the observed values only.
//
// Errors are surfaced immediately; there are no partial fits. A
// degenerate dependence structure (single column, or no latent
// variance) is not an error: the model falls back to independent
// sampling.
func Fit(ctx context.Context, tbl *table.Table, sch schema.Schema, seed int64) (*TrainedModel, error) {
	if len(sch.Columns) != len(tbl.Columns) {
		return nil, fmt.Errorf("synth: schema has %d columns, table has %d", len(sch.Columns), len(tbl.Columns))
	}

	m := &TrainedModel{
		Schema:  sch,
		FitRows: tbl.NumRows(),
		FitSeed: seed,
	}

	m.marginals = make([]marginal.Model, len(sch.Columns))
	for i, col := range sch.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mm, err := marginal.Fit(tbl.Col(i), col)
		if err != nil {
			return nil, err
		}
		m.marginals[i] = mm
	}

	quantiles, err := m.forwardMatrix(ctx, tbl)
	if err != nil {
		return nil, err
	}

	dep, err := copula.Fit(quantiles)
	if err != nil {
		var degenerate *copula.DegenerateInputError
		if errors.As(err, &degenerate) {
			// No dependence to model; sample columns independently.
			m.dep = nil
			return m, nil
		}
		return nil, err
	}
	m.dep = dep
	return m, nil
}

// forwardMatrix transforms the training table into row-major quantiles.
func (m *TrainedModel) forwardMatrix(ctx context.Context, tbl *table.Table) ([][]float64, error) {
	out := make([][]float64, tbl.NumRows())
	for r, row := range tbl.Rows {
		if r%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		qrow := make([]float64, len(m.marginals))
		for c, mm := range m.marginals {
			if row[c] == nil {
				qrow[c] = 0.5
				continue
			}
			q, err := mm.Forward(row[c])
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", m.Schema.Columns[c].Name, r+1, err)
			}
			qrow[c] = marginal.ClampQ(q)
		}
		out[r] = qrow
	}
	return out, nil
}

// Generate draws exactly n synthetic rows. Output columns follow the
// schema order; every value satisfies its column's constraints. The call
// either returns all n rows or fails atomically; cancellation discards
// all work.
func (m *TrainedModel) Generate(ctx context.Context, n int, seed int64) (*table.Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("synth: negative row count %d", n)
	}

	names := make([]string, len(m.Schema.Columns))
	for i, c := range m.Schema.Columns {
		names[i] = c.Name
	}
	out := table.New(names)
	if n == 0 {
		return out, nil
	}

	var quantiles [][]float64
	if m.dep != nil {
		quantiles = m.dep.Sample(n, seed)
	} else {
		quantiles = copula.SampleIndependent(n, len(m.marginals), seed)
	}

	out.Rows = make([][]any, 0, n)
	for r := 0; r < n; r++ {
		if r%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row := make([]any, len(m.marginals))
		for c, mm := range m.marginals {
			v, err := mm.Inverse(marginal.ClampQ(quantiles[r][c]))
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", m.Schema.Columns[c].Name, err)
			}
			v, err = m.repair(c, v)
			if err != nil {
				return nil, err
			}
			row[c] = v
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// repair clips numeric values to the observed bounds and verifies the
// constraint set. Anything beyond simple clipping is a transform bug and
// comes back as *ConstraintViolationError.
func (m *TrainedModel) repair(c int, v any) (any, error) {
	col := m.Schema.Columns[c]
	switch col.Kind {
	case schema.Continuous:
		f, ok := v.(float64)
		if !ok {
			return nil, &ConstraintViolationError{Column: col.Name, Value: v}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ConstraintViolationError{Column: col.Name, Value: v}
		}
		if f < col.Min {
			f = col.Min
		}
		if f > col.Max {
			f = col.Max
		}
		return f, nil

	case schema.Discrete:
		i, ok := v.(int64)
		if !ok {
			return nil, &ConstraintViolationError{Column: col.Name, Value: v}
		}
		if float64(i) < col.Min {
			i = int64(math.Ceil(col.Min))
		}
		if float64(i) > col.Max {
			i = int64(math.Floor(col.Max))
		}
		return i, nil

	case schema.Categorical:
		s, ok := v.(string)
		if !ok || !containsLabel(col.Categories, s) {
			return nil, &ConstraintViolationError{Column: col.Name, Value: v}
		}
		return s, nil

	case schema.Boolean:
		if _, ok := v.(bool); !ok {
			return nil, &ConstraintViolationError{Column: col.Name, Value: v}
		}
		return v, nil

	default:
		return nil, &ConstraintViolationError{Column: col.Name, Value: v}
	}
}

// Dependence exposes the fitted copula model (nil when the model fell
// back to independent sampling).
func (m *TrainedModel) Dependence() *copula.Model { return m.dep }

func containsLabel(labels []string, s string) bool {
	for _, l := range labels {
		if l == s {
			return true
		}
	}
	return false
}
