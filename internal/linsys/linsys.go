// Package linsys owns the numeric state of a model's linear equation blocks
// across a simulation run and dispatches each solve to an interchangeable
// backend strategy.
//
// Every equation block is described by a [System]: its unknown vector,
// right-hand side, nominal/bound metadata and an opaque coefficient storage
// owned by the strategy bound to it. The [Registry] performs the bulk
// lifecycle (initialize, refresh static data, free) and is the only entry
// point the step driver calls. A failed solve is data (Solved=false), never
// an error; errors are reserved for configuration mistakes.
package linsys

import (
	"fmt"
	"strconv"

	"github.com/mlundvall/daesim/internal/diag"
)

// Method selects the backend strategy used for every system in a run. It is
// fixed at InitializeAll and never mixed per system.
type Method int

const (
	// MethodDenseDirect factors a column-major dense matrix by LU with
	// partial pivoting.
	MethodDenseDirect Method = iota
	// MethodSparseIterative solves through a compressed sparse matrix with
	// preconditioned BiCGStab.
	MethodSparseIterative
)

func (m Method) String() string {
	switch m {
	case MethodDenseDirect:
		return "dense"
	case MethodSparseIterative:
		return "sparse"
	default:
		return "method(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMethod maps a config string to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "dense", "lu":
		return MethodDenseDirect, nil
	case "sparse", "bicgstab":
		return MethodSparseIterative, nil
	default:
		return 0, fmt.Errorf("unrecognized linear solver method %q", s)
	}
}

// StaticInit populates Nominal, Min and Max of a system from the model's
// current parameter values. It must be idempotent and must not touch any
// other field.
type StaticInit func(s *System)

// JacobianInit prepares an analytical Jacobian for a block. A nil
// JacobianInit means no analytical Jacobian is available; a failing one is
// downgraded to nil during initialization (solving falls back to a numerical
// Jacobian upstream).
type JacobianInit func() error

// Spec describes one equation block before any allocation happens.
type Spec struct {
	Size          int
	Nnz           int
	EquationIndex int
	InitStatic    StaticInit
	InitJacobian  JacobianInit
}

// System is the per-block descriptor. Size and Nnz are immutable after
// InitializeAll; all buffers are exclusively owned by the descriptor and
// released exactly once by FreeAll.
type System struct {
	Size          int
	Nnz           int
	EquationIndex int

	// X holds the current solution, B the right-hand side refreshed every
	// solve by the population callback.
	X []float64
	B []float64

	// Nominal, Min and Max are scaling/clamping metadata refreshed in place
	// by the static-data initializer.
	Nominal []float64
	Min     []float64
	Max     []float64

	// SetA writes one coefficient of A. It is bound to the backend strategy
	// once at initialization so the per-step population loop does not branch
	// on the method for every element.
	SetA func(row, col int, v float64)

	// Solved is the result of the most recent solve.
	Solved bool

	initStatic   StaticInit
	initJacobian JacobianInit
	solver       Strategy
}

// HasAnalyticalJacobian reports whether an analytical Jacobian initializer
// is still attached after initialization.
func (s *System) HasAnalyticalJacobian() bool {
	return s.initJacobian != nil
}

// Strategy is the backend capability set. The coefficient storage it
// allocates is opaque to the registry and the dispatcher; only the strategy
// that allocated it may touch it.
type Strategy interface {
	Allocate(size, nnz int) error
	Set(row, col int, v float64)
	// Solve produces s.X from the current coefficients and s.B. It returns
	// false on numerical failure and must not mutate Size, Nnz or the
	// static metadata.
	Solve(s *System) bool
	Release()
}

// Options tunes the registry; the zero value is usable.
type Options struct {
	// SparseTol is the relative residual tolerance of the iterative
	// backend; 0 means 1e-10.
	SparseTol float64
	// SparseMaxIter caps iterations of the iterative backend; 0 means
	// 2*size.
	SparseMaxIter int
	// EquationName formats an equation index for failure diagnostics.
	EquationName func(index int) string
}

// Registry owns the ordered collection of systems for a whole model run.
type Registry struct {
	systems []*System
	method  Method
	opts    Options
	log     *diag.Sink
}

// NewRegistry builds an unallocated registry from the model's block specs.
// Nothing is allocated until InitializeAll.
func NewRegistry(specs []Spec, log *diag.Sink, opts Options) *Registry {
	if log == nil {
		log = diag.Nop()
	}
	r := &Registry{opts: opts, log: log}
	for _, sp := range specs {
		r.systems = append(r.systems, &System{
			Size:          sp.Size,
			Nnz:           sp.Nnz,
			EquationIndex: sp.EquationIndex,
			initStatic:    sp.InitStatic,
			initJacobian:  sp.InitJacobian,
		})
	}
	return r
}

// Len returns the number of systems.
func (r *Registry) Len() int { return len(r.systems) }

// System returns the i-th descriptor.
func (r *Registry) System(i int) *System { return r.systems[i] }

// Method returns the method the registry was initialized with.
func (r *Registry) Method() Method { return r.method }

func (r *Registry) newStrategy() Strategy {
	switch r.method {
	case MethodDenseDirect:
		return newDenseSolver()
	case MethodSparseIterative:
		return newSparseSolver(r.opts.SparseTol, r.opts.SparseMaxIter)
	}
	return nil
}

// InitializeAll allocates every system's buffers and coefficient storage,
// binding the strategy selected by method. An unrecognized method fails
// before any buffer is touched. A failing analytical-Jacobian initializer is
// downgraded to "none" and is not an error.
func (r *Registry) InitializeAll(method Method) error {
	switch method {
	case MethodDenseDirect, MethodSparseIterative:
	default:
		return fmt.Errorf("linsys: unrecognized linear solver method %d", int(method))
	}
	r.method = method

	done := r.log.Scope("initialize linear system solvers")
	defer done()

	for i, s := range r.systems {
		if s.Size <= 0 {
			return fmt.Errorf("linsys: system %d has non-positive size %d", i, s.Size)
		}

		s.X = make([]float64, s.Size)
		s.B = make([]float64, s.Size)

		if s.initJacobian != nil {
			if err := s.initJacobian(); err != nil {
				r.log.Warnf("system %d: analytical jacobian unavailable (%v), falling back to numerical", i, err)
				s.initJacobian = nil
			}
		}

		s.Nominal = make([]float64, s.Size)
		s.Min = make([]float64, s.Size)
		s.Max = make([]float64, s.Size)
		if s.initStatic != nil {
			s.initStatic(s)
		}

		solver := r.newStrategy()
		if err := solver.Allocate(s.Size, s.Nnz); err != nil {
			return fmt.Errorf("linsys: system %d: %w", i, err)
		}
		s.solver = solver
		s.SetA = solver.Set
		r.log.Debugf("system %d: size=%d nnz=%d method=%s", i, s.Size, s.Nnz, method)
	}

	return nil
}

// RefreshStaticData re-runs only the static-data initializers. It does not
// touch coefficient storage, unknowns or solve results and may be called any
// number of times.
func (r *Registry) RefreshStaticData() {
	done := r.log.Scope("update static data of linear system solvers")
	defer done()

	for _, s := range r.systems {
		if s.initStatic != nil && s.Nominal != nil {
			s.initStatic(s)
		}
	}
}

// FreeAll releases every buffer and coefficient storage. It is safe after a
// partial InitializeAll and safe to call twice; releasing an unallocated
// field is a no-op.
func (r *Registry) FreeAll() {
	done := r.log.Scope("free linear system solvers")
	defer done()

	for _, s := range r.systems {
		s.X, s.B = nil, nil
		s.Nominal, s.Min, s.Max = nil, nil, nil
		if s.solver != nil {
			s.solver.Release()
			s.solver = nil
		}
		s.SetA = nil
	}
}

// SolveOne dispatches system i to its bound strategy and records the result
// in Solved. A missing strategy is a configuration error, not a numeric
// failure, and is returned as an error.
func (r *Registry) SolveOne(i int) error {
	if i < 0 || i >= len(r.systems) {
		return fmt.Errorf("linsys: system index %d out of range [0,%d)", i, len(r.systems))
	}
	s := r.systems[i]
	if s.solver == nil {
		return fmt.Errorf("linsys: system %d has no bound solver; registry not initialized", i)
	}
	s.Solved = s.solver.Solve(s)
	return nil
}

// AnyUnsolved reports whether at least one system failed its most recent
// solve. With verbose set and warn-level diagnostics enabled it emits one
// message per failing system naming its equation and the simulation time. It
// mutates nothing; retry policy belongs to the caller.
func (r *Registry) AnyUnsolved(verbose bool, t float64) bool {
	any := false
	for _, s := range r.systems {
		if s.Solved {
			continue
		}
		any = true
		if verbose && r.log.WarnEnabled() {
			r.log.Warnf("linear system %s fails at t=%g", r.equationName(s.EquationIndex), t)
		}
	}
	return any
}

func (r *Registry) equationName(index int) string {
	if r.opts.EquationName != nil {
		return r.opts.EquationName(index)
	}
	return strconv.Itoa(index)
}
