// Package marginal implements per-column marginal models: the forward
// transform from a raw value to its empirical quantile in (0,1), and the
// inverse transform back to a valid raw value.
//
// Two model families exist behind one interface:
//   - Empirical: continuous and discrete columns, rank-based CDF with
//     the midpoint rule and average ranks for ties; inverse by linear
//     interpolation between order statistics, clamped to the observed
//     range.
//   - Categorical: categorical and boolean columns, a probability mass
//     table over labels in first-seen order; forward maps a label to the
//     midpoint of its cumulative-mass interval, inverse does a
//     cumulative lookup.
//
// Inverse is total on the open interval (0,1). Callers clamp quantiles
// with ClampQ before inverting; a quantile outside (0,1) is a programming
// error and surfaces as *InverseError.
package marginal

import (
	"fmt"

	"tabsynth/internal/schema"
)

// Eps is the open-interval guard: quantiles handed to Inverse are clamped
// into [Eps, 1-Eps].
const Eps = 1e-9

// Model maps raw values to quantiles and back for one column.
type Model interface {
	// Kind returns the schema kind the model was fitted for.
	Kind() schema.Kind

	// Forward maps a raw value to its quantile in (0,1).
	Forward(v any) (float64, error)

	// Inverse maps a quantile in (0,1) to a raw value of the column's
	// type (float64, int64, string or bool).
	Inverse(q float64) (any, error)
}

// InverseError signals a quantile outside the open unit interval. It
// never surfaces when inputs are pre-clamped with ClampQ.
type InverseError struct {
	Q float64
}

func (e *InverseError) Error() string {
	return fmt.Sprintf("marginal: quantile %v outside (0,1)", e.Q)
}

// ClampQ forces a quantile into the open interval the inverse transforms
// accept.
func ClampQ(q float64) float64 {
	if q < Eps {
		return Eps
	}
	if q > 1-Eps {
		return 1 - Eps
	}
	return q
}

// Fit builds the marginal model for one column. values are the column's
// cells in row order; nil cells are skipped.
//
// Errors:
//   - fitting fails when no non-null values remain (the schema
//     inferencer normally rejects such columns first).
func Fit(values []any, col schema.Column) (Model, error) {
	switch col.Kind {
	case schema.Continuous, schema.Discrete:
		return fitEmpirical(values, col)
	case schema.Categorical, schema.Boolean:
		return fitCategorical(values, col)
	default:
		return nil, fmt.Errorf("marginal: unknown kind %v for column %q", col.Kind, col.Name)
	}
}
