package eval

import (
	"fmt"
	"math"
	"sort"

	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

// DefaultFidelityThreshold is the per-column statistic below which a
// marginal counts as preserved in the headline summary.
const DefaultFidelityThreshold = 0.1

// ColumnFidelity scores one column's marginal agreement. Numeric columns
// use the two-sample Kolmogorov-Smirnov statistic, categorical and
// boolean columns use total variation distance. Both live in [0,1] with
// 0 meaning identical distributions.
type ColumnFidelity struct {
	Column    string  `json:"column"`
	Kind      string  `json:"kind"`
	Metric    string  `json:"metric"` // "ks" or "tvd"
	Statistic float64 `json:"statistic"`
}

// CorrelationDelta compares one numeric column pair's Pearson
// correlation between the real and synthetic tables.
type CorrelationDelta struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Real  float64 `json:"real"`
	Synth float64 `json:"synth"`
	Delta float64 `json:"delta"` // |Real - Synth|
}

// FidelityReport aggregates per-column and pairwise fidelity.
type FidelityReport struct {
	Columns      []ColumnFidelity   `json:"columns"`
	Correlations []CorrelationDelta `json:"correlations,omitempty"`

	Threshold            float64 `json:"threshold"`
	ShareWithinThreshold float64 `json:"share_within_threshold"`
	MedianStatistic      float64 `json:"median_statistic"`
	MedianCorrDelta      float64 `json:"median_corr_delta"`
}

// Fidelity scores marginal and pairwise agreement between a real table
// and a synthetic one. Both tables must match the schema's column order.
// A non-positive threshold selects DefaultFidelityThreshold.
func Fidelity(real, synth *table.Table, sch schema.Schema, threshold float64) (*FidelityReport, error) {
	if err := checkShape(real, synth, sch); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = DefaultFidelityThreshold
	}

	rep := &FidelityReport{Threshold: threshold}
	var stats []float64
	for i, col := range sch.Columns {
		var cf ColumnFidelity
		cf.Column = col.Name
		cf.Kind = col.Kind.String()
		switch col.Kind {
		case schema.Continuous, schema.Discrete:
			cf.Metric = "ks"
			cf.Statistic = ksStatistic(numericCells(real.Col(i)), numericCells(synth.Col(i)))
		default:
			cf.Metric = "tvd"
			cf.Statistic = totalVariation(col, real.Col(i), synth.Col(i))
		}
		rep.Columns = append(rep.Columns, cf)
		stats = append(stats, cf.Statistic)
	}

	within := 0
	for _, s := range stats {
		if s <= threshold {
			within++
		}
	}
	if len(stats) > 0 {
		rep.ShareWithinThreshold = float64(within) / float64(len(stats))
		rep.MedianStatistic = median(stats)
	}

	rep.Correlations = correlationDeltas(real, synth, sch)
	if len(rep.Correlations) > 0 {
		deltas := make([]float64, len(rep.Correlations))
		for i, c := range rep.Correlations {
			deltas[i] = c.Delta
		}
		rep.MedianCorrDelta = median(deltas)
	}
	return rep, nil
}

func checkShape(real, synth *table.Table, sch schema.Schema) error {
	if len(real.Columns) != len(sch.Columns) || len(synth.Columns) != len(sch.Columns) {
		return fmt.Errorf("eval: column count mismatch: real %d, synth %d, schema %d",
			len(real.Columns), len(synth.Columns), len(sch.Columns))
	}
	if real.NumRows() == 0 || synth.NumRows() == 0 {
		return fmt.Errorf("eval: empty table (real %d rows, synth %d rows)", real.NumRows(), synth.NumRows())
	}
	return nil
}

func numericCells(cells []any) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if f, ok := table.ParseFloat(c); ok {
			out = append(out, f)
		}
	}
	return out
}

// ksStatistic is the two-sample Kolmogorov-Smirnov statistic: the
// largest gap between the two empirical CDFs.
func ksStatistic(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 1
	}
	sa := append([]float64(nil), a...)
	sb := append([]float64(nil), b...)
	sort.Float64s(sa)
	sort.Float64s(sb)

	var i, j int
	var d float64
	for i < len(sa) && j < len(sb) {
		// Step past every occurrence of the current minimum in both
		// samples before measuring, so ties across samples cancel out
		// instead of inflating the gap.
		v := math.Min(sa[i], sb[j])
		for i < len(sa) && sa[i] == v {
			i++
		}
		for j < len(sb) && sb[j] == v {
			j++
		}
		gap := math.Abs(float64(i)/float64(len(sa)) - float64(j)/float64(len(sb)))
		if gap > d {
			d = gap
		}
	}
	return d
}

// totalVariation is half the L1 distance between the two label
// frequency vectors, over the union of observed labels.
func totalVariation(col schema.Column, real, synth []any) float64 {
	pr := labelFreqs(col, real)
	ps := labelFreqs(col, synth)
	seen := map[string]bool{}
	var sum float64
	for l, p := range pr {
		sum += math.Abs(p - ps[l])
		seen[l] = true
	}
	for l, p := range ps {
		if !seen[l] {
			sum += p
		}
	}
	return sum / 2
}

func labelFreqs(col schema.Column, cells []any) map[string]float64 {
	freq := map[string]float64{}
	n := 0
	for _, c := range cells {
		if c == nil {
			continue
		}
		freq[canonicalLabel(col, c)]++
		n++
	}
	for l := range freq {
		freq[l] /= float64(n)
	}
	return freq
}

// correlationDeltas compares Pearson correlations for every numeric
// column pair, in schema order.
func correlationDeltas(real, synth *table.Table, sch schema.Schema) []CorrelationDelta {
	var numeric []int
	for i, col := range sch.Columns {
		if col.Kind == schema.Continuous || col.Kind == schema.Discrete {
			numeric = append(numeric, i)
		}
	}
	var out []CorrelationDelta
	for a := 0; a < len(numeric); a++ {
		for b := a + 1; b < len(numeric); b++ {
			i, j := numeric[a], numeric[b]
			rr := pearson(real.Col(i), real.Col(j))
			rs := pearson(synth.Col(i), synth.Col(j))
			out = append(out, CorrelationDelta{
				A:     sch.Columns[i].Name,
				B:     sch.Columns[j].Name,
				Real:  rr,
				Synth: rs,
				Delta: math.Abs(rr - rs),
			})
		}
	}
	return out
}

// pearson computes the sample correlation over rows where both cells
// parse. Degenerate inputs (constant column, fewer than two complete
// pairs) score zero.
func pearson(xs, ys []any) float64 {
	var fx, fy []float64
	for r := range xs {
		x, okx := table.ParseFloat(xs[r])
		y, oky := table.ParseFloat(ys[r])
		if okx && oky {
			fx = append(fx, x)
			fy = append(fy, y)
		}
	}
	n := len(fx)
	if n < 2 {
		return 0
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += fx[i]
		my += fy[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := fx[i]-mx, fy[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx < 1e-12 || syy < 1e-12 {
		return 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}
