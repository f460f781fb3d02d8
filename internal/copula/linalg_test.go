package copula

import (
	"math"
	"testing"
)

func TestCholesky_FactorsKnownMatrix(t *testing.T) {
	// A = [[4,2],[2,3]] factors as L = [[2,0],[1,sqrt(2)]].
	a := [][]float64{{4, 2}, {2, 3}}
	l, err := cholesky(a)
	if err != nil {
		t.Fatalf("cholesky: %v", err)
	}
	want := [][]float64{{2, 0}, {1, math.Sqrt2}}
	for i := range want {
		for j := range want[i] {
			if math.Abs(l[i][j]-want[i][j]) > 1e-12 {
				t.Errorf("L[%d][%d] = %v, want %v", i, j, l[i][j], want[i][j])
			}
		}
	}
}

func TestCholesky_RejectsIndefiniteMatrix(t *testing.T) {
	// Correlations (0.9, 0.9, -0.9) cannot coexist; the matrix has a
	// negative eigenvalue.
	a := [][]float64{
		{1, 0.9, 0.9},
		{0.9, 1, -0.9},
		{0.9, -0.9, 1},
	}
	if _, err := cholesky(a); err == nil {
		t.Fatal("expected factorization failure for indefinite matrix")
	}
}

func TestJacobiEigen_RecoversSpectrum(t *testing.T) {
	// Symmetric with known eigenvalues 3 and 1.
	a := [][]float64{{2, 1}, {1, 2}}
	vals, vecs := jacobiEigen(a)

	got := append([]float64(nil), vals...)
	if got[0] > got[1] {
		got[0], got[1] = got[1], got[0]
	}
	if math.Abs(got[0]-1) > 1e-9 || math.Abs(got[1]-3) > 1e-9 {
		t.Fatalf("eigenvalues = %v, want [1 3]", vals)
	}

	// V diag(vals) V^T must reconstruct A.
	n := len(a)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for k := 0; k < n; k++ {
				sum += vecs[i][k] * vals[k] * vecs[j][k]
			}
			if math.Abs(sum-a[i][j]) > 1e-9 {
				t.Errorf("reconstruction[%d][%d] = %v, want %v", i, j, sum, a[i][j])
			}
		}
	}
}

func TestNearestCorrelation_PassesValidMatrixThrough(t *testing.T) {
	a := [][]float64{{1, 0.5}, {0.5, 1}}
	out := NearestCorrelation(a)
	for i := range a {
		for j := range a[i] {
			if out[i][j] != a[i][j] {
				t.Fatalf("valid matrix was modified: out[%d][%d] = %v", i, j, out[i][j])
			}
		}
	}
}

// An indefinite pseudo-correlation must come back factorizable, with a
// unit diagonal and entries in [-1, 1].
func TestNearestCorrelation_RepairsIndefiniteMatrix(t *testing.T) {
	a := [][]float64{
		{1, 0.9, 0.9},
		{0.9, 1, -0.9},
		{0.9, -0.9, 1},
	}
	out := NearestCorrelation(a)

	for i := range out {
		if math.Abs(out[i][i]-1) > 1e-12 {
			t.Errorf("diagonal[%d] = %v, want 1", i, out[i][i])
		}
		for j := range out[i] {
			if out[i][j] < -1-1e-9 || out[i][j] > 1+1e-9 {
				t.Errorf("out[%d][%d] = %v outside [-1, 1]", i, j, out[i][j])
			}
			if math.Abs(out[i][j]-out[j][i]) > 1e-9 {
				t.Errorf("asymmetry at (%d,%d)", i, j)
			}
		}
	}

	if _, err := cholesky(out); err != nil {
		t.Fatalf("repaired matrix still not factorizable: %v", err)
	}
}
