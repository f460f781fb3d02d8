// Package eval scores synthetic tables against the real tables they were
// fitted on: statistical fidelity, downstream utility (train on
// synthetic, test on real) and heuristic privacy indicators.
//
// All scores are pure functions of their inputs plus an explicit seed;
// repeated runs produce identical reports.
package eval

import (
	"math"
	"sort"

	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

// encoder turns loosely typed rows into fixed-width feature vectors:
// numeric columns are standardized with statistics fitted on the real
// data, categorical and boolean columns are one-hot encoded over the
// fitted label set. Unknown labels encode as an all-zero block; missing
// numerics encode as the fitted mean.
type encoder struct {
	cols  []encodedColumn
	width int
}

type encodedColumn struct {
	index   int // position in the source table
	numeric bool

	// numeric columns
	mean, std float64

	// categorical/boolean columns
	labels []string
	offset int // start of the one-hot block in the output vector
}

// fitEncoder builds an encoder on the real table. Columns listed in skip
// are left out of the feature vector (the prediction target, typically).
func fitEncoder(real *table.Table, sch schema.Schema, skip map[int]bool) *encoder {
	enc := &encoder{}
	for i, col := range sch.Columns {
		if skip[i] {
			continue
		}
		switch col.Kind {
		case schema.Continuous, schema.Discrete:
			mean, std := columnStats(real.Col(i))
			enc.cols = append(enc.cols, encodedColumn{
				index:   i,
				numeric: true,
				mean:    mean,
				std:     std,
			})
			enc.width++
		case schema.Categorical, schema.Boolean:
			labels := append([]string(nil), col.Categories...)
			enc.cols = append(enc.cols, encodedColumn{
				index:  i,
				labels: labels,
				offset: enc.width,
			})
			enc.width += len(labels)
		}
	}
	// Fix offsets: numeric columns interleave with one-hot blocks, so
	// recompute positions in a single pass.
	w := 0
	for i := range enc.cols {
		enc.cols[i].offset = w
		if enc.cols[i].numeric {
			w++
		} else {
			w += len(enc.cols[i].labels)
		}
	}
	enc.width = w
	return enc
}

// encode maps one row to a feature vector.
func (e *encoder) encode(row []any, sch schema.Schema) []float64 {
	out := make([]float64, e.width)
	for _, c := range e.cols {
		cell := row[c.index]
		if c.numeric {
			f, ok := table.ParseFloat(cell)
			if !ok {
				f = c.mean
			}
			out[c.offset] = (f - c.mean) / c.std
			continue
		}
		label := canonicalLabel(sch.Columns[c.index], cell)
		for j, l := range c.labels {
			if l == label {
				out[c.offset+j] = 1
				break
			}
		}
	}
	return out
}

func (e *encoder) encodeAll(t *table.Table, sch schema.Schema) [][]float64 {
	out := make([][]float64, t.NumRows())
	for r, row := range t.Rows {
		out[r] = e.encode(row, sch)
	}
	return out
}

// canonicalLabel renders a cell as one of the column's fitted labels.
// Boolean columns need polarity matching: the real table may spell truth
// "yes" while the generator emits typed bools.
func canonicalLabel(col schema.Column, cell any) string {
	s := schema.CellString(cell)
	if col.Kind != schema.Boolean {
		return s
	}
	want, ok := schema.ParseBool(s)
	if !ok {
		return s
	}
	for _, l := range col.Categories {
		if v, ok := schema.ParseBool(l); ok && v == want {
			return l
		}
	}
	return s
}

// columnStats returns mean and standard deviation over the parseable
// cells. The deviation is floored at a small epsilon so constant columns
// standardize to zero instead of dividing by zero.
func columnStats(cells []any) (mean, std float64) {
	var sum float64
	var n int
	for _, c := range cells {
		if f, ok := table.ParseFloat(c); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, 1
	}
	mean = sum / float64(n)
	var ss float64
	for _, c := range cells {
		if f, ok := table.ParseFloat(c); ok {
			d := f - mean
			ss += d * d
		}
	}
	std = math.Sqrt(ss / float64(n))
	if std < 1e-12 {
		std = 1
	}
	return mean, std
}

// percentile returns the p-quantile (0..1) of xs by linear interpolation
// between order statistics. xs is copied, not mutated.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[len(s)-1]
	}
	pos := p * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo]*(1-frac) + s[hi]*frac
}

func median(xs []float64) float64 { return percentile(xs, 0.5) }
