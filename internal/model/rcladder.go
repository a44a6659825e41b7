package model

import (
	"fmt"
	"math"
)

// RCLadder models two independent RC ladder networks driven by the same
// source voltage. Each ladder is its own equation block, so the model
// exercises multi-block dispatch: a failing ladder is reported by its own
// equation index.
type RCLadder struct {
	StagesA int
	StagesB int
	R       float64 // series resistance per stage, ohm
	C       float64 // capacitance per stage, farad
	Vin     float64 // source voltage, volt
}

const (
	rcLadderEquationA = 3001
	rcLadderEquationB = 3002
)

func NewRCLadder() *RCLadder {
	return &RCLadder{
		StagesA: 6,
		StagesB: 10,
		R:       1.0e3,
		C:       1.0e-4,
		Vin:     5.0,
	}
}

func (rc *RCLadder) Name() string  { return "rcladder" }
func (rc *RCLadder) StateDim() int { return rc.StagesA + rc.StagesB }

func (rc *RCLadder) InitialState() []float64 {
	return make([]float64, rc.StagesA+rc.StagesB)
}

func (rc *RCLadder) stages(i int) int {
	if i == 0 {
		return rc.StagesA
	}
	return rc.StagesB
}

// offset returns where block i's node voltages start in the state vector.
func (rc *RCLadder) offset(i int) int {
	if i == 0 {
		return 0
	}
	return rc.StagesA
}

func (rc *RCLadder) Blocks() []Block {
	jacInit := func() error {
		if rc.R <= 0 || rc.C <= 0 {
			return fmt.Errorf("R and C must be positive, got R=%g C=%g", rc.R, rc.C)
		}
		return nil
	}
	return []Block{
		{Size: rc.StagesA, Nnz: 3*rc.StagesA - 2, EquationIndex: rcLadderEquationA, InitJacobian: jacInit},
		{Size: rc.StagesB, Nnz: 3*rc.StagesB - 2, EquationIndex: rcLadderEquationB, InitJacobian: jacInit},
	}
}

func (rc *RCLadder) InitStatic(i int, nominal, min, max []float64) {
	nom := math.Abs(rc.Vin)
	if nom < 1 {
		nom = 1
	}
	for j := range nominal {
		nominal[j] = nom
		min[j] = -10 * nom
		max[j] = 10 * nom
	}
}

// Populate stamps one ladder. Node j obeys
//
//	C*v_j' = (v_{j-1} - v_j)/R + (v_{j+1} - v_j)/R
//
// with v_{-1} = Vin and the last node open-ended.
func (rc *RCLadder) Populate(i int, t, dt float64, x []float64, set SetFunc, b []float64) {
	n := rc.stages(i)
	off := rc.offset(i)
	g := dt / (rc.R * rc.C)

	for j := 0; j < n; j++ {
		diag := 1 + g // left neighbor always present (node 0 sees the source)
		if j < n-1 {
			diag += g
			set(j, j+1, -g)
		}
		set(j, j, diag)
		if j > 0 {
			set(j, j-1, -g)
		}
		b[j] = x[off+j]
	}
	b[0] += g * rc.Vin
}

func (rc *RCLadder) Apply(i int, xsol, x []float64) {
	copy(x[rc.offset(i):rc.offset(i)+rc.stages(i)], xsol)
}

func (rc *RCLadder) EquationName(index int) string {
	switch index {
	case rcLadderEquationA:
		return fmt.Sprintf("%d (rcladder network A)", index)
	case rcLadderEquationB:
		return fmt.Sprintf("%d (rcladder network B)", index)
	}
	return fmt.Sprintf("%d", index)
}

func (rc *RCLadder) Params() map[string]float64 {
	return map[string]float64{
		"r":   rc.R,
		"c":   rc.C,
		"vin": rc.Vin,
	}
}

func (rc *RCLadder) SetParam(name string, value float64) error {
	switch name {
	case "r":
		rc.R = value
	case "c":
		rc.C = value
	case "vin":
		rc.Vin = value
	default:
		return fmt.Errorf("rcladder has no parameter %q", name)
	}
	return nil
}
