// Package model provides the simulation models. Each model is implicitly
// discretized: advancing the state by one step means solving one linear
// system per equation block, so a model's job is to declare its blocks and
// to stamp coefficients and right-hand sides for them each step.
package model

import (
	"fmt"
	"sort"
)

// SetFunc writes one coefficient of a block's matrix. The engine binds it to
// the backend storage of the block's solver.
type SetFunc func(row, col int, v float64)

// Block describes one linear equation block of a model.
type Block struct {
	// Size is the block's unknown count, Nnz its nonzero count (used only
	// by sparse backends).
	Size int
	Nnz  int
	// EquationIndex identifies the block in failure diagnostics.
	EquationIndex int
	// InitJacobian prepares an analytical Jacobian for the block; nil means
	// none is available.
	InitJacobian func() error
}

// Model is a dynamical system whose implicit time discretization yields
// linear equation blocks.
type Model interface {
	Name() string
	StateDim() int
	InitialState() []float64
	Blocks() []Block

	// InitStatic populates block i's nominal values and bounds from the
	// current parameters. Idempotent; called at initialization and after
	// every parameter change.
	InitStatic(i int, nominal, min, max []float64)

	// Populate stamps block i's coefficients and right-hand side for one
	// implicit step from x at time t to t+dt.
	Populate(i int, t, dt float64, x []float64, set SetFunc, b []float64)

	// Apply scatters block i's solved unknowns back into the state.
	Apply(i int, xsol, x []float64)

	// EquationName formats an equation index for diagnostics.
	EquationName(index int) string
}

// Configurable models expose runtime-tunable parameters.
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

var factories = map[string]func() Model{
	"heatrod":     func() Model { return NewHeatRod() },
	"springchain": func() Model { return NewSpringChain() },
	"rcladder":    func() Model { return NewRCLadder() },
}

// New returns a fresh model by name.
func New(name string) (Model, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

// Names lists the registered model names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
