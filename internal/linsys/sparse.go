package linsys

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const defaultSparseTol = 1e-10

// sparseSolver is the sparse iterative strategy. Coefficients accumulate in
// a coordinate map between solves; Solve compresses them to CSR and runs
// BiCGStab with a Jacobi preconditioner. Duplicate writes to the same
// (row,col) overwrite the previous value: last write wins.
type sparseSolver struct {
	n       int
	entries map[coord]float64
	tol     float64
	maxIter int

	// scratch vectors reused across solves
	r, rhat, p, v, s, t, z, y []float64
}

type coord struct{ row, col int }

func newSparseSolver(tol float64, maxIter int) *sparseSolver {
	if tol <= 0 {
		tol = defaultSparseTol
	}
	return &sparseSolver{tol: tol, maxIter: maxIter}
}

func (sp *sparseSolver) Allocate(size, nnz int) error {
	if size <= 0 {
		return fmt.Errorf("sparse solver: invalid size %d", size)
	}
	sp.n = size
	if nnz <= 0 {
		nnz = size
	}
	sp.entries = make(map[coord]float64, nnz)
	for _, buf := range []*[]float64{&sp.r, &sp.rhat, &sp.p, &sp.v, &sp.s, &sp.t, &sp.z, &sp.y} {
		*buf = make([]float64, size)
	}
	return nil
}

func (sp *sparseSolver) Set(row, col int, v float64) {
	sp.entries[coord{row, col}] = v
}

func (sp *sparseSolver) Release() {
	sp.entries = nil
	sp.r, sp.rhat, sp.p, sp.v, sp.s, sp.t, sp.z, sp.y = nil, nil, nil, nil, nil, nil, nil, nil
	sp.n = 0
}

func (sp *sparseSolver) Solve(s *System) bool {
	m := sp.compress()
	maxIter := sp.maxIter
	if maxIter <= 0 {
		maxIter = 2 * sp.n
		if maxIter < 10 {
			maxIter = 10
		}
	}
	return sp.bicgstab(m, s, maxIter)
}

// compress converts the coordinate map to CSR. Row-major traversal order is
// made deterministic by sorting the coordinates.
func (sp *sparseSolver) compress() *csrMatrix {
	coords := make([]coord, 0, len(sp.entries))
	for c := range sp.entries {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].row != coords[j].row {
			return coords[i].row < coords[j].row
		}
		return coords[i].col < coords[j].col
	})

	m := &csrMatrix{
		rowPtr: make([]int, sp.n+1),
		colIdx: make([]int, len(coords)),
		vals:   make([]float64, len(coords)),
	}
	for i, c := range coords {
		m.rowPtr[c.row+1]++
		m.colIdx[i] = c.col
		m.vals[i] = sp.entries[c]
	}
	for i := 0; i < sp.n; i++ {
		m.rowPtr[i+1] += m.rowPtr[i]
	}
	return m
}

// bicgstab iterates x toward A x = b, starting from the previous solution in
// s.X. Convergence is measured on the residual norm scaled by the system's
// nominal values, relative to the scaled right-hand side.
func (sp *sparseSolver) bicgstab(m *csrMatrix, s *System, maxIter int) bool {
	n := sp.n
	x := s.X
	b := s.B

	// Jacobi preconditioner from the matrix diagonal
	invDiag := sp.y
	for i := range invDiag {
		invDiag[i] = 1
	}
	for i := 0; i < n; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if m.colIdx[k] == i && m.vals[k] != 0 {
				invDiag[i] = 1 / m.vals[k]
			}
		}
	}

	bnorm := sp.scaledNorm(b, s.Nominal)
	if bnorm == 0 {
		// homogeneous system: the zero vector is exact
		for i := range x {
			x[i] = 0
		}
		return true
	}
	tol := sp.tol * bnorm

	r, rhat, p, v, sres, t, z := sp.r, sp.rhat, sp.p, sp.v, sp.s, sp.t, sp.z
	m.mulVec(r, x)
	floats.SubTo(r, b, r)
	if sp.scaledNorm(r, s.Nominal) <= tol {
		return finite(x)
	}
	copy(rhat, r)

	rho, alpha, omega := 1.0, 1.0, 1.0
	for i := range p {
		p[i], v[i] = 0, 0
	}

	for iter := 0; iter < maxIter; iter++ {
		rhoNext := floats.Dot(rhat, r)
		if rhoNext == 0 || math.IsNaN(rhoNext) {
			return false // breakdown
		}
		beta := (rhoNext / rho) * (alpha / omega)
		rho = rhoNext
		for i := 0; i < n; i++ {
			p[i] = r[i] + beta*(p[i]-omega*v[i])
		}
		for i := 0; i < n; i++ {
			z[i] = invDiag[i] * p[i]
		}
		m.mulVec(v, z)
		den := floats.Dot(rhat, v)
		if den == 0 || math.IsNaN(den) {
			return false
		}
		alpha = rho / den
		for i := 0; i < n; i++ {
			sres[i] = r[i] - alpha*v[i]
		}
		if sp.scaledNorm(sres, s.Nominal) <= tol {
			floats.AddScaled(x, alpha, z)
			return finite(x)
		}
		for i := 0; i < n; i++ {
			t[i] = invDiag[i] * sres[i]
		}
		// reuse r for A*t during the update
		m.mulVec(r, t)
		tt := floats.Dot(r, r)
		if tt == 0 || math.IsNaN(tt) {
			return false
		}
		omega = floats.Dot(r, sres) / tt
		for i := 0; i < n; i++ {
			x[i] += alpha*z[i] + omega*t[i]
		}
		for i := 0; i < n; i++ {
			r[i] = sres[i] - omega*r[i]
		}
		if sp.scaledNorm(r, s.Nominal) <= tol {
			return finite(x)
		}
		if omega == 0 {
			return false
		}
	}
	return false // iteration cap exceeded
}

// scaledNorm is the 2-norm of v with each component divided by the matching
// nominal magnitude, so convergence is judged in the model's own units.
func (sp *sparseSolver) scaledNorm(v, nominal []float64) float64 {
	if len(nominal) != len(v) {
		return floats.Norm(v, 2)
	}
	sum := 0.0
	for i, val := range v {
		w := math.Abs(nominal[i])
		if w < 1 {
			w = 1
		}
		sum += (val / w) * (val / w)
	}
	return math.Sqrt(sum)
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// csrMatrix is a compressed sparse row matrix.
type csrMatrix struct {
	rowPtr []int
	colIdx []int
	vals   []float64
}

// mulVec computes dst = M*x. dst must not alias x.
func (m *csrMatrix) mulVec(dst, x []float64) {
	for i := 0; i < len(m.rowPtr)-1; i++ {
		sum := 0.0
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			sum += m.vals[k] * x[m.colIdx[k]]
		}
		dst[i] = sum
	}
}
