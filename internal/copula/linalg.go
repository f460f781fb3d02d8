package copula

import (
	"errors"
	"math"
)

// cholesky computes the lower-triangular factor L with A = L*L^T.
// Returns an error when A is not numerically positive definite.
func cholesky(a [][]float64) ([][]float64, error) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, errors.New("matrix not positive definite")
				}
				l[i][j] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, nil
}

// jacobiEigen diagonalizes a symmetric matrix with cyclic Jacobi
// rotations. Returns the eigenvalues and the column eigenvectors
// (vecs[i][k] is component i of eigenvector k). Dimensions here are the
// number of modeled columns, so the O(n^3) sweep cost is irrelevant.
func jacobiEigen(a [][]float64) (vals []float64, vecs [][]float64) {
	n := len(a)

	// Work on a copy; accumulate rotations in v.
	m := make([][]float64, n)
	v := make([][]float64, n)
	for i := 0; i < n; i++ {
		m[i] = append([]float64(nil), a[i]...)
		v[i] = make([]float64, n)
		v[i][i] = 1
	}

	const (
		maxSweeps = 100
		tol       = 1e-12
	)

	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := 0.0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				off += m[i][j] * m[i][j]
			}
		}
		if off < tol {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(m[p][q]) < tol/float64(n*n) {
					continue
				}

				theta := (m[q][q] - m[p][p]) / (2 * m[p][q])
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for k := 0; k < n; k++ {
					mkp, mkq := m[k][p], m[k][q]
					m[k][p] = c*mkp - s*mkq
					m[k][q] = s*mkp + c*mkq
				}
				for k := 0; k < n; k++ {
					mpk, mqk := m[p][k], m[q][k]
					m[p][k] = c*mpk - s*mqk
					m[q][k] = s*mpk + c*mqk
				}
				for k := 0; k < n; k++ {
					vkp, vkq := v[k][p], v[k][q]
					v[k][p] = c*vkp - s*vkq
					v[k][q] = s*vkp + c*vkq
				}
			}
		}
	}

	vals = make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = m[i][i]
	}
	return vals, v
}

// NearestCorrelation projects a symmetric matrix onto the set of valid
// correlation matrices: eigenvalues are clipped to a small positive
// floor, the matrix is reconstructed, and the diagonal is renormalized
// to 1. Matrices that are already positive definite pass through
// unchanged (up to the cheap Cholesky probe).
//
// Sampling must never fail on a fitted structure, so this is the one
// place where numerical invalidity is repaired rather than reported.
func NearestCorrelation(a [][]float64) [][]float64 {
	if _, err := cholesky(a); err == nil {
		return a
	}

	const floor = 1e-6

	vals, vecs := jacobiEigen(a)
	for i, lam := range vals {
		if lam < floor {
			vals[i] = floor
		}
	}

	n := len(a)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			sum := 0.0
			for k := 0; k < n; k++ {
				sum += vecs[i][k] * vals[k] * vecs[j][k]
			}
			out[i][j] = sum
		}
	}

	// Renormalize to unit diagonal.
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = math.Sqrt(out[i][i])
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] /= d[i] * d[j]
		}
		out[i][i] = 1
	}
	return out
}
