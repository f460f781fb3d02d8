package eval

import (
	"math"
	"sort"
	"strings"

	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

// DefaultPrivacyK is the neighbor rank used for the distance
// distribution when the caller does not set one.
const DefaultPrivacyK = 1

// flagDistance is the standardized Euclidean distance under which a
// synthetic row counts as dangerously close to a real row.
const flagDistance = 1e-6

// PrivacyReport holds heuristic disclosure indicators. These detect
// verbatim leakage and near-copies; they are not an anonymity guarantee.
type PrivacyReport struct {
	K int `json:"k"`

	// ExactMatchRate is the share of synthetic rows whose full string
	// signature appears verbatim in the real table.
	ExactMatchRate float64 `json:"exact_match_rate"`

	// UniquenessRate is the share of distinct signatures among synthetic
	// rows. Low values mean the sampler is collapsing onto few outputs.
	UniquenessRate float64 `json:"uniqueness_rate"`

	// Distance distribution of each synthetic row to its k-th nearest
	// real row, over standardized numeric columns. Absent (NaN) when the
	// schema has no numeric columns.
	NNDistanceMedian float64 `json:"nn_distance_median"`
	NNDistanceP05    float64 `json:"nn_distance_p05"`
	NNDistanceP95    float64 `json:"nn_distance_p95"`

	// FlaggedRows are synthetic row indices whose nearest real row is
	// closer than the flag distance (numeric near-duplicates).
	FlaggedRows []int `json:"flagged_rows,omitempty"`
}

// Privacy scores disclosure risk of a synthetic table against the real
// table it was fitted on. k selects the neighbor rank for the distance
// distribution; k < 1 selects DefaultPrivacyK.
func Privacy(real, synth *table.Table, sch schema.Schema, k int) (*PrivacyReport, error) {
	if err := checkShape(real, synth, sch); err != nil {
		return nil, err
	}
	if k < 1 {
		k = DefaultPrivacyK
	}
	if k > real.NumRows() {
		k = real.NumRows()
	}
	rep := &PrivacyReport{K: k}

	realSigs := map[string]bool{}
	for _, row := range real.Rows {
		realSigs[signature(row)] = true
	}
	synthSigs := map[string]bool{}
	matches := 0
	for _, row := range synth.Rows {
		sig := signature(row)
		synthSigs[sig] = true
		if realSigs[sig] {
			matches++
		}
	}
	n := float64(synth.NumRows())
	rep.ExactMatchRate = float64(matches) / n
	rep.UniquenessRate = float64(len(synthSigs)) / n

	enc := fitEncoder(real, sch, nil)
	realVecs := numericVectors(enc, real)
	synthVecs := numericVectors(enc, synth)
	if len(realVecs) == 0 || len(realVecs[0]) == 0 {
		rep.NNDistanceMedian = math.NaN()
		rep.NNDistanceP05 = math.NaN()
		rep.NNDistanceP95 = math.NaN()
		return rep, nil
	}

	kth := make([]float64, len(synthVecs))
	for i, sv := range synthVecs {
		dists := make([]float64, len(realVecs))
		for j, rv := range realVecs {
			dists[j] = euclidean(sv, rv)
		}
		sort.Float64s(dists)
		kth[i] = dists[k-1]
		if dists[0] < flagDistance {
			rep.FlaggedRows = append(rep.FlaggedRows, i)
		}
	}
	rep.NNDistanceMedian = median(kth)
	rep.NNDistanceP05 = percentile(kth, 0.05)
	rep.NNDistanceP95 = percentile(kth, 0.95)
	return rep, nil
}

// signature renders a row as one joinable string. The unit separator
// keeps adjacent cells from colliding.
func signature(row []any) string {
	parts := make([]string, len(row))
	for i, c := range row {
		parts[i] = table.Format(c)
	}
	return strings.Join(parts, "\x1f")
}

// numericVectors standardizes just the numeric columns of a table.
func numericVectors(enc *encoder, t *table.Table) [][]float64 {
	var cols []encodedColumn
	for _, c := range enc.cols {
		if c.numeric {
			cols = append(cols, c)
		}
	}
	out := make([][]float64, t.NumRows())
	for r, row := range t.Rows {
		v := make([]float64, len(cols))
		for i, c := range cols {
			f, ok := table.ParseFloat(row[c.index])
			if !ok {
				f = c.mean
			}
			v[i] = (f - c.mean) / c.std
		}
		out[r] = v
	}
	return out
}

func euclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}
