// Package sim drives a model through time. Each step it stamps every
// equation block's coefficients, dispatches the solves through the linear
// system registry and aggregates failures. Retry and abort policy lives
// here, outside the solver core.
package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/mlundvall/daesim/internal/diag"
	"github.com/mlundvall/daesim/internal/linsys"
	"github.com/mlundvall/daesim/internal/model"
)

// ParamEvent changes a model parameter at a given simulation time. Applying
// one triggers a static-data refresh of every system.
type ParamEvent struct {
	Time  float64
	Param string
	Value float64
}

// Config controls a run.
type Config struct {
	Dt       float64
	Duration float64

	Method        linsys.Method
	SparseTol     float64
	SparseMaxIter int

	// VerboseFailures emits one diagnostic per failing system each step.
	VerboseFailures bool
	// AbortOnFailure stops the run on the first step with an unsolved
	// system instead of carrying the previous values forward.
	AbortOnFailure bool

	// Events must be sorted by time.
	Events []ParamEvent
}

// Result of a completed (or aborted) run.
type Result struct {
	States  [][]float64
	Times   []float64
	Metrics map[string]float64
	// FailedSteps counts steps on which at least one system stayed
	// unsolved.
	FailedSteps int
}

// Engine owns a model, its linear system registry and the run loop.
type Engine struct {
	mdl     model.Model
	reg     *linsys.Registry
	log     *diag.Sink
	cfg     Config
	metrics []Metric
}

// New wires a model's blocks into a registry. Init must be called before
// stepping.
func New(mdl model.Model, log *diag.Sink, cfg Config) *Engine {
	if log == nil {
		log = diag.Nop()
	}
	blocks := mdl.Blocks()
	specs := make([]linsys.Spec, len(blocks))
	for i, blk := range blocks {
		i := i
		specs[i] = linsys.Spec{
			Size:          blk.Size,
			Nnz:           blk.Nnz,
			EquationIndex: blk.EquationIndex,
			InitStatic: func(s *linsys.System) {
				mdl.InitStatic(i, s.Nominal, s.Min, s.Max)
			},
			InitJacobian: blk.InitJacobian,
		}
	}
	reg := linsys.NewRegistry(specs, log, linsys.Options{
		SparseTol:     cfg.SparseTol,
		SparseMaxIter: cfg.SparseMaxIter,
		EquationName:  mdl.EquationName,
	})
	return &Engine{
		mdl:     mdl,
		reg:     reg,
		log:     log,
		cfg:     cfg,
		metrics: []Metric{NewSolveCount(), NewFailureCount(), NewFailureRate()},
	}
}

// Registry exposes the underlying registry (used by the live view and
// tests).
func (e *Engine) Registry() *linsys.Registry { return e.reg }

// Model returns the engine's model.
func (e *Engine) Model() model.Model { return e.mdl }

// Init allocates all linear systems for the configured method.
func (e *Engine) Init() error {
	return e.reg.InitializeAll(e.cfg.Method)
}

// Close releases all solver resources. Safe to call twice.
func (e *Engine) Close() {
	e.reg.FreeAll()
}

// SetParam updates a model parameter and refreshes the static solver data
// in place, without reallocating anything.
func (e *Engine) SetParam(name string, value float64) error {
	cfgModel, ok := e.mdl.(model.Configurable)
	if !ok {
		return fmt.Errorf("model %s has no tunable parameters", e.mdl.Name())
	}
	if err := cfgModel.SetParam(name, value); err != nil {
		return err
	}
	e.reg.RefreshStaticData()
	return nil
}

// Step advances the state in place by one dt, solving every block. It
// returns true when at least one system stayed unsolved; solved blocks are
// still applied so the run can degrade instead of diverging silently.
func (e *Engine) Step(t float64, x []float64) (failed bool, err error) {
	n := e.reg.Len()
	for i := 0; i < n; i++ {
		sys := e.reg.System(i)
		if sys.SetA == nil {
			return false, fmt.Errorf("system %d: solver not initialized", i)
		}
		e.mdl.Populate(i, t, e.cfg.Dt, x, model.SetFunc(sys.SetA), sys.B)
		if err := e.reg.SolveOne(i); err != nil {
			return false, err
		}
	}

	failed = e.reg.AnyUnsolved(e.cfg.VerboseFailures, t)

	for i := 0; i < n; i++ {
		sys := e.reg.System(i)
		for _, m := range e.metrics {
			m.Observe(sys, t)
		}
		if sys.Solved {
			e.mdl.Apply(i, sys.X, x)
		}
	}
	return failed, nil
}

// Run executes the configured number of steps from the model's initial
// state. The context is checked between steps.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	steps := int(e.cfg.Duration / e.cfg.Dt)
	result := &Result{
		States:  make([][]float64, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}
	for _, m := range e.metrics {
		m.Reset()
	}

	x := append([]float64(nil), e.mdl.InitialState()...)
	t := 0.0
	result.States = append(result.States, append([]float64(nil), x...))
	result.Times = append(result.Times, t)

	events := e.cfg.Events
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		for len(events) > 0 && t >= events[0].Time {
			ev := events[0]
			events = events[1:]
			if err := e.SetParam(ev.Param, ev.Value); err != nil {
				return result, fmt.Errorf("parameter event at t=%g: %w", ev.Time, err)
			}
			e.log.Infof("parameter %s set to %g at t=%g", ev.Param, ev.Value, t)
		}

		failed, err := e.Step(t, x)
		if err != nil {
			return result, err
		}
		if failed {
			result.FailedSteps++
			if e.cfg.AbortOnFailure {
				e.finish(result)
				return result, fmt.Errorf("unsolved linear system at t=%g", t)
			}
		}

		t += e.cfg.Dt
		result.States = append(result.States, append([]float64(nil), x...))
		result.Times = append(result.Times, t)
	}

	e.finish(result)
	return result, nil
}

func (e *Engine) finish(result *Result) {
	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (e *Engine) validate() error {
	if e.cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", e.cfg.Dt)
	}
	if e.cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", e.cfg.Duration)
	}
	if !sort.SliceIsSorted(e.cfg.Events, func(i, j int) bool {
		return e.cfg.Events[i].Time < e.cfg.Events[j].Time
	}) {
		return fmt.Errorf("parameter events must be sorted by time")
	}
	return nil
}
