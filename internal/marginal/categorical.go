package marginal

import (
	"fmt"

	"tabsynth/internal/schema"
)

// Categorical is the probability-mass marginal for categorical and
// boolean columns.
//
// Labels keep their first-seen order from the schema constraints; that
// order fixes the cumulative-mass layout, so the same training data
// always yields the same quantile-to-category mapping.
type Categorical struct {
	kind schema.Kind

	labels []string
	cum    []float64 // cumulative mass boundaries, cum[len-1] == 1
}

func fitCategorical(values []any, col schema.Column) (*Categorical, error) {
	counts := make(map[string]int, len(col.Categories))
	total := 0
	for _, v := range values {
		s := schema.CellString(v)
		if s == "" {
			continue
		}
		counts[canonicalLabel(col.Kind, s, col.Categories)]++
		total++
	}
	if total == 0 {
		return nil, fmt.Errorf("marginal: column %q has no values", col.Name)
	}

	m := &Categorical{
		kind:   col.Kind,
		labels: append([]string(nil), col.Categories...),
		cum:    make([]float64, len(col.Categories)),
	}
	acc := 0.0
	for i, lab := range m.labels {
		acc += float64(counts[lab]) / float64(total)
		m.cum[i] = acc
	}
	// Guard against float drift so the final interval always covers 1.
	m.cum[len(m.cum)-1] = 1
	return m, nil
}

// canonicalLabel maps a raw cell onto the schema's label set. Boolean
// cells may arrive as typed bools ("true"/"false"); they match the
// observed label with the same polarity.
func canonicalLabel(kind schema.Kind, s string, categories []string) string {
	if kind != schema.Boolean {
		return s
	}
	if _, ok := schema.ParseBool(s); !ok {
		return s
	}
	want, _ := schema.ParseBool(s)
	for _, lab := range categories {
		if b, ok := schema.ParseBool(lab); ok && b == want {
			return lab
		}
	}
	return s
}

func (m *Categorical) Kind() schema.Kind { return m.kind }

// Forward maps a label to the midpoint of its cumulative-mass interval.
func (m *Categorical) Forward(v any) (float64, error) {
	s := canonicalLabel(m.kind, schema.CellString(v), m.labels)
	for i, lab := range m.labels {
		if lab != s {
			continue
		}
		lo := 0.0
		if i > 0 {
			lo = m.cum[i-1]
		}
		return ClampQ((lo + m.cum[i]) / 2), nil
	}
	return 0, fmt.Errorf("marginal: unknown category %q", s)
}

// Inverse finds the first category whose cumulative boundary exceeds q.
// Zero-mass categories are skipped: their interval is empty, so no
// quantile can land in it.
func (m *Categorical) Inverse(q float64) (any, error) {
	if q <= 0 || q >= 1 {
		return nil, &InverseError{Q: q}
	}
	lo := 0.0
	for i, hi := range m.cum {
		if hi == lo {
			continue
		}
		if q < hi || i == len(m.cum)-1 {
			return m.emit(m.labels[i]), nil
		}
		lo = hi
	}
	// Unreachable: cum ends at 1 and q < 1.
	return m.emit(m.labels[len(m.labels)-1]), nil
}

func (m *Categorical) emit(label string) any {
	if m.kind == schema.Boolean {
		if b, ok := schema.ParseBool(label); ok {
			return b
		}
	}
	return label
}

// Labels returns the canonical label order.
func (m *Categorical) Labels() []string {
	return append([]string(nil), m.labels...)
}
