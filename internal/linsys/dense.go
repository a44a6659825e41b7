package linsys

import (
	"fmt"
	"math"
)

// denseSolver is the dense direct strategy: the coefficient matrix lives in
// a flat column-major buffer (element (row,col) at row + col*n, the layout
// dense factorization routines expect) and is factored in place by LU with
// partial pivoting each solve. The population callback rewrites every
// coefficient before the next solve, so destroying A during factorization is
// fine.
type denseSolver struct {
	n    int
	a    []float64 // n*n, column-major
	ipvt []int
}

func newDenseSolver() *denseSolver { return &denseSolver{} }

func (d *denseSolver) Allocate(size, nnz int) error {
	if size <= 0 {
		return fmt.Errorf("dense solver: invalid size %d", size)
	}
	d.n = size
	d.a = make([]float64, size*size)
	d.ipvt = make([]int, size)
	return nil
}

func (d *denseSolver) Set(row, col int, v float64) {
	d.a[row+col*d.n] = v
}

func (d *denseSolver) Solve(s *System) bool {
	if dgefa(d.a, d.n, d.ipvt) != 0 {
		return false
	}
	copy(s.X, s.B)
	dgesl(d.a, d.n, d.ipvt, s.X)
	for _, v := range s.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (d *denseSolver) Release() {
	d.a, d.ipvt = nil, nil
	d.n = 0
}

// dgefa factors a column-major n×n matrix in place by gaussian elimination
// with partial pivoting.
//
// on return
//
//	a       an upper triangular matrix and the multipliers used to obtain
//	        it; the factorization a = l*u where l is a product of permutation
//	        and unit lower triangular matrices.
//
//	ipvt    pivot indices.
//
//	info    0 for a normal return, k+1 if u(k,k) == 0, in which case dgesl
//	        would divide by zero.
func dgefa(a []float64, n int, ipvt []int) (info int) {
	for k := 0; k < n-1; k++ {
		// find the pivot in column k
		l := k
		max := math.Abs(a[k+k*n])
		for i := k + 1; i < n; i++ {
			if v := math.Abs(a[i+k*n]); v > max {
				max, l = v, i
			}
		}
		ipvt[k] = l

		if a[l+k*n] == 0 {
			info = k + 1
			continue
		}

		if l != k {
			a[l+k*n], a[k+k*n] = a[k+k*n], a[l+k*n]
		}

		// compute multipliers
		t := -1.0 / a[k+k*n]
		for i := k + 1; i < n; i++ {
			a[i+k*n] *= t
		}

		// row elimination with column indexing
		for j := k + 1; j < n; j++ {
			t := a[l+j*n]
			if l != k {
				a[l+j*n] = a[k+j*n]
				a[k+j*n] = t
			}
			for i := k + 1; i < n; i++ {
				a[i+j*n] += t * a[i+k*n]
			}
		}
	}
	ipvt[n-1] = n - 1
	if a[(n-1)+(n-1)*n] == 0 {
		info = n
	}
	return info
}

// dgesl solves a*x = b in place using the factors computed by dgefa. b holds
// the right-hand side on entry and the solution on return. It must not be
// called when dgefa reported a zero pivot.
func dgesl(a []float64, n int, ipvt []int, b []float64) {
	// forward: solve l*y = b
	for k := 0; k < n-1; k++ {
		l := ipvt[k]
		t := b[l]
		if l != k {
			b[l] = b[k]
			b[k] = t
		}
		for i := k + 1; i < n; i++ {
			b[i] += t * a[i+k*n]
		}
	}
	// back: solve u*x = y
	for k := n - 1; k >= 0; k-- {
		b[k] /= a[k+k*n]
		t := -b[k]
		for i := 0; i < k; i++ {
			b[i] += t * a[i+k*n]
		}
	}
}
