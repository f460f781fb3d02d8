// Package copula implements the Gaussian-copula dependence core.
//
// Fit maps per-column quantile vectors into latent Gaussian space via
// the probit transform, estimates the Pearson correlation matrix there
// (equivalent to a rank/Gaussian-copula correlation of the raw data),
// and repairs the estimate to a valid correlation matrix when numerical
// noise pushes it off the positive-semidefinite cone. Sample draws
// correlated standard normals through the Cholesky factor and maps them
// back to correlated uniforms.
//
// Determinism: Sample is a pure function of (model, n, seed). The same
// triple always produces bit-identical output.
package copula

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// latentVarEps is the variance floor below which a latent column is
// treated as constant and excluded from correlation estimation.
const latentVarEps = 1e-12

// DegenerateInputError signals that no dependence structure can be
// estimated. The caller degrades to independent per-column sampling.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return "copula: degenerate input: " + e.Reason
}

// Model is a fitted Gaussian copula over D columns.
//
// Columns whose latent transform had zero variance are carried as
// independent: they are still sampled (uniformly) but take no part in
// the correlation structure.
type Model struct {
	dim int

	// dependent holds the column indices covered by corr/chol, in
	// ascending order; independent holds the excluded ones.
	dependent   []int
	independent []int

	corr [][]float64 // correlation over dependent columns
	chol [][]float64 // lower Cholesky factor of corr
}

// Dim returns the total number of modeled columns.
func (m *Model) Dim() int { return m.dim }

// IndependentColumns returns the indices sampled without correlation.
func (m *Model) IndependentColumns() []int {
	return append([]int(nil), m.independent...)
}

// Corr returns the fitted correlation matrix over the dependent columns.
func (m *Model) Corr() [][]float64 {
	out := make([][]float64, len(m.corr))
	for i := range m.corr {
		out[i] = append([]float64(nil), m.corr[i]...)
	}
	return out
}

// Fit estimates the dependence structure from an n×D quantile matrix
// (every cell already in (0,1), produced by the marginal transforms).
//
// Errors:
//   - *DegenerateInputError when D < 2, or when fewer than two columns
//     survive the zero-variance exclusion. The caller falls back to
//     independent sampling; this is a degradation, not a failure.
func Fit(quantiles [][]float64) (*Model, error) {
	n := len(quantiles)
	if n == 0 {
		return nil, errors.New("copula: empty quantile matrix")
	}
	d := len(quantiles[0])
	if d < 2 {
		return nil, &DegenerateInputError{Reason: fmt.Sprintf("need at least 2 columns, got %d", d)}
	}

	// Latent transform: z = Probit(q), column-major.
	z := make([][]float64, d)
	for j := 0; j < d; j++ {
		z[j] = make([]float64, n)
	}
	for i, row := range quantiles {
		if len(row) != d {
			return nil, fmt.Errorf("copula: ragged quantile matrix at row %d", i)
		}
		for j, q := range row {
			z[j][i] = Probit(q)
		}
	}

	m := &Model{dim: d}
	means := make([]float64, d)
	vars := make([]float64, d)
	for j := 0; j < d; j++ {
		means[j], vars[j] = meanVar(z[j])
		if vars[j] < latentVarEps {
			m.independent = append(m.independent, j)
		} else {
			m.dependent = append(m.dependent, j)
		}
	}

	if len(m.dependent) < 2 {
		return nil, &DegenerateInputError{
			Reason: fmt.Sprintf("only %d column(s) with latent variance", len(m.dependent)),
		}
	}

	k := len(m.dependent)
	corr := make([][]float64, k)
	for a := range corr {
		corr[a] = make([]float64, k)
		corr[a][a] = 1
	}
	for a := 0; a < k; a++ {
		for b := a + 1; b < k; b++ {
			ja, jb := m.dependent[a], m.dependent[b]
			r := pearson(z[ja], z[jb], means[ja], means[jb], vars[ja], vars[jb])
			corr[a][b] = r
			corr[b][a] = r
		}
	}

	corr = NearestCorrelation(corr)

	chol, err := cholesky(corr)
	if err != nil {
		// The projection should have fixed this; absorb any residual
		// rounding with diagonal jitter before giving up.
		chol, err = choleskyWithJitter(corr)
		if err != nil {
			return nil, fmt.Errorf("copula: factorize correlation: %w", err)
		}
	}

	m.corr = corr
	m.chol = chol
	return m, nil
}

// Sample draws an n×D matrix of correlated uniform quantiles. Rows are
// generated one at a time from a single seeded generator: dependent
// columns first (through the Cholesky factor), then the independent
// columns in ascending index order. That draw order is part of the
// determinism contract.
func (m *Model) Sample(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	k := len(m.dependent)

	out := make([][]float64, n)
	g := make([]float64, k)
	for i := 0; i < n; i++ {
		row := make([]float64, m.dim)

		for j := 0; j < k; j++ {
			g[j] = rng.NormFloat64()
		}
		for j := 0; j < k; j++ {
			sum := 0.0
			for t := 0; t <= j; t++ {
				sum += m.chol[j][t] * g[t]
			}
			row[m.dependent[j]] = NormalCDF(sum)
		}
		for _, j := range m.independent {
			row[j] = rng.Float64()
		}
		out[i] = row
	}
	return out
}

// SampleIndependent draws n×d uniforms with no dependence structure at
// all. Used by the sampler when Fit reports degenerate input.
func SampleIndependent(n, d int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = rng.Float64()
		}
		out[i] = row
	}
	return out
}

func choleskyWithJitter(a [][]float64) ([][]float64, error) {
	n := len(a)
	jitter := 1e-10
	for try := 0; try < 6; try++ {
		b := make([][]float64, n)
		for i := range b {
			b[i] = append([]float64(nil), a[i]...)
			b[i][i] += jitter
		}
		if l, err := cholesky(b); err == nil {
			return l, nil
		}
		jitter *= 100
	}
	return nil, errors.New("correlation matrix not factorizable")
}

func meanVar(x []float64) (mean, variance float64) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0
	}
	sum, sumSq := 0.0, 0.0
	for _, v := range x {
		sum += v
		sumSq += v * v
	}
	mean = sum / n
	variance = (sumSq / n) - mean*mean
	return mean, variance
}

func pearson(x, y []float64, meanX, meanY, varX, varY float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	sumXY := 0.0
	for i := range x {
		sumXY += x[i] * y[i]
	}
	cov := sumXY/n - meanX*meanY
	den := math.Sqrt(varX * varY)
	if den == 0 {
		return 0
	}
	r := cov / den
	// Rounding can push |r| a hair past 1; clamp before factorization.
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}
