package linsys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSparseSystem(t *testing.T, size, nnz int) (*sparseSolver, *System) {
	t.Helper()
	sp := newSparseSolver(0, 0)
	require.NoError(t, sp.Allocate(size, nnz))
	return sp, &System{
		Size: size,
		Nnz:  nnz,
		X:    make([]float64, size),
		B:    make([]float64, size),
	}
}

func TestSparseDuplicateWritesOverwrite(t *testing.T) {
	sp, s := newSparseSystem(t, 1, 1)

	sp.Set(0, 0, 5)
	sp.Set(0, 0, 2) // last write wins
	s.B[0] = 4

	require.True(t, sp.Solve(s))
	assert.InDelta(t, 2.0, s.X[0], 1e-9)
}

func TestSparseSolveTridiagonal(t *testing.T) {
	const n = 20
	sp, s := newSparseSystem(t, n, 3*n-2)

	xref := make([]float64, n)
	for i := range xref {
		xref[i] = float64(i%5) - 2
	}
	// diagonally dominant tridiagonal stencil
	stamp := func(set func(int, int, float64)) {
		for i := 0; i < n; i++ {
			set(i, i, 4)
			if i > 0 {
				set(i, i-1, -1)
			}
			if i < n-1 {
				set(i, i+1, -1)
			}
		}
	}
	stamp(sp.Set)
	for i := 0; i < n; i++ {
		b := 4 * xref[i]
		if i > 0 {
			b -= xref[i-1]
		}
		if i < n-1 {
			b -= xref[i+1]
		}
		s.B[i] = b
	}

	require.True(t, sp.Solve(s))
	for i := range xref {
		assert.InDelta(t, xref[i], s.X[i], 1e-7)
	}
}

func TestSparseMatchesDense(t *testing.T) {
	const n = 6
	a := [n][n]float64{}
	for i := 0; i < n; i++ {
		a[i][i] = 5
		if i > 0 {
			a[i][i-1] = 1.5
		}
		if i < n-1 {
			a[i][i+1] = -0.5
		}
	}
	b := []float64{1, -2, 3, 0.5, 2, -1}

	sp, ssys := newSparseSystem(t, n, 3*n-2)
	d, dsys := newDenseSystem(t, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if a[i][j] != 0 {
				sp.Set(i, j, a[i][j])
			}
			d.Set(i, j, a[i][j])
		}
		ssys.B[i], dsys.B[i] = b[i], b[i]
	}

	require.True(t, sp.Solve(ssys))
	require.True(t, d.Solve(dsys))
	for i := 0; i < n; i++ {
		assert.InDelta(t, dsys.X[i], ssys.X[i], 1e-7)
	}
}

func TestSparseHomogeneousSystem(t *testing.T) {
	sp, s := newSparseSystem(t, 3, 3)
	for i := 0; i < 3; i++ {
		sp.Set(i, i, 2)
		s.X[i] = 9 // stale solution from an earlier step
	}

	require.True(t, sp.Solve(s))
	assert.Equal(t, []float64{0, 0, 0}, s.X)
}

func TestSparseSingularFails(t *testing.T) {
	sp, s := newSparseSystem(t, 2, 2)

	// rank-1 matrix, inconsistent rhs
	sp.Set(0, 0, 1)
	sp.Set(0, 1, 1)
	sp.Set(1, 0, 1)
	sp.Set(1, 1, 1)
	s.B[0], s.B[1] = 1, 2

	assert.False(t, sp.Solve(s))
	assert.Len(t, s.X, 2)
}

func TestSparseIterationCap(t *testing.T) {
	// a cap of 1 iteration cannot converge on a coupled system
	sp := newSparseSolver(1e-14, 1)
	require.NoError(t, sp.Allocate(4, 10))
	s := &System{Size: 4, X: make([]float64, 4), B: make([]float64, 4)}

	for i := 0; i < 4; i++ {
		sp.Set(i, i, 2)
		sp.Set(i, (i+1)%4, 1)
		s.B[i] = float64(i + 1)
	}

	assert.False(t, sp.Solve(s))
}

func TestSparseNominalScaling(t *testing.T) {
	sp, s := newSparseSystem(t, 2, 2)
	s.Nominal = []float64{1e6, 1e6}

	sp.Set(0, 0, 3)
	sp.Set(1, 1, 3)
	s.B[0], s.B[1] = 3e6, 6e6

	require.True(t, sp.Solve(s))
	assert.InDelta(t, 1e6, s.X[0], 1)
	assert.InDelta(t, 2e6, s.X[1], 1)
}

func TestSparseReleaseIdempotent(t *testing.T) {
	sp, _ := newSparseSystem(t, 2, 2)
	sp.Release()
	sp.Release()
	assert.Nil(t, sp.entries)
}
