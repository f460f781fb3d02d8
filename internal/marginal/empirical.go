package marginal

import (
	"fmt"
	"math"
	"sort"

	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

// Empirical is the rank-based marginal for continuous and discrete
// columns.
//
// The fitted state is the deduplicated sorted sample plus one quantile
// per unique value: F(v) = (avgrank(v) - 0.5) / n, where avgrank is the
// average 1-based rank of v's tie group. Quantiles are strictly
// increasing across unique values, so the inverse can interpolate
// between adjacent knots and stay deterministic under ties.
type Empirical struct {
	kind schema.Kind

	vals  []float64 // unique observed values, ascending
	quant []float64 // tie-averaged midpoint-rule quantiles, strictly increasing

	min, max float64
}

func fitEmpirical(values []any, col schema.Column) (*Empirical, error) {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := table.ParseFloat(v)
		if !ok {
			continue
		}
		sorted = append(sorted, f)
	}
	if len(sorted) == 0 {
		return nil, fmt.Errorf("marginal: column %q has no numeric values", col.Name)
	}
	sort.Float64s(sorted)

	n := float64(len(sorted))
	m := &Empirical{kind: col.Kind, min: sorted[0], max: sorted[len(sorted)-1]}

	// Collapse tie groups: one knot per unique value at the group's
	// average rank.
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		// 1-based ranks i+1..j, average (i+j+1)/2.
		avgRank := float64(i+j+1) / 2
		m.vals = append(m.vals, sorted[i])
		m.quant = append(m.quant, (avgRank-0.5)/n)
		i = j
	}
	return m, nil
}

func (m *Empirical) Kind() schema.Kind { return m.kind }

// Forward maps a value to its empirical quantile. Observed values land on
// their tie-averaged knot exactly; unseen values interpolate between the
// bracketing knots, and values outside the observed range clamp to the
// extreme knots.
func (m *Empirical) Forward(v any) (float64, error) {
	f, ok := table.ParseFloat(v)
	if !ok {
		return 0, fmt.Errorf("marginal: non-numeric value %v", v)
	}

	last := len(m.vals) - 1
	if f <= m.vals[0] {
		return m.quant[0], nil
	}
	if f >= m.vals[last] {
		return m.quant[last], nil
	}

	// First knot >= f.
	i := sort.SearchFloat64s(m.vals, f)
	if m.vals[i] == f {
		return m.quant[i], nil
	}
	lo, hi := i-1, i
	w := (f - m.vals[lo]) / (m.vals[hi] - m.vals[lo])
	return m.quant[lo] + w*(m.quant[hi]-m.quant[lo]), nil
}

// Inverse maps a quantile back to a value by linear interpolation between
// the bracketing knots. Quantiles outside the observed quantile range
// clamp to the observed min/max: the model never extrapolates past the
// training data. Discrete models round to the nearest integer.
func (m *Empirical) Inverse(q float64) (any, error) {
	if q <= 0 || q >= 1 {
		return nil, &InverseError{Q: q}
	}

	last := len(m.vals) - 1
	var f float64
	switch {
	case q <= m.quant[0]:
		f = m.vals[0]
	case q >= m.quant[last]:
		f = m.vals[last]
	default:
		i := sort.SearchFloat64s(m.quant, q)
		if m.quant[i] == q {
			f = m.vals[i]
		} else {
			lo, hi := i-1, i
			w := (q - m.quant[lo]) / (m.quant[hi] - m.quant[lo])
			f = m.vals[lo] + w*(m.vals[hi]-m.vals[lo])
		}
	}

	if m.kind == schema.Discrete {
		r := math.Round(f)
		if r < m.min {
			r = math.Ceil(m.min)
		}
		if r > m.max {
			r = math.Floor(m.max)
		}
		return int64(r), nil
	}
	return f, nil
}

// Min returns the observed lower bound.
func (m *Empirical) Min() float64 { return m.min }

// Max returns the observed upper bound.
func (m *Empirical) Max() float64 { return m.max }
