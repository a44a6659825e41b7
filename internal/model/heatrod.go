package model

import (
	"fmt"
	"math"
)

// HeatRod models heat conduction along a 1D rod with fixed boundary
// temperatures. Backward-Euler discretization of the interior nodes yields a
// single tridiagonal block per step.
type HeatRod struct {
	Nodes int     // interior node count
	Alpha float64 // thermal diffusivity
	TLeft float64 // boundary temperature, left end
	TRight float64
	T0     float64 // uniform initial temperature
	Length float64
}

const heatRodEquation = 1001

func NewHeatRod() *HeatRod {
	return &HeatRod{
		Nodes:  12,
		Alpha:  1.2e-2,
		TLeft:  340.0,
		TRight: 290.0,
		T0:     293.15,
		Length: 1.0,
	}
}

func (h *HeatRod) Name() string  { return "heatrod" }
func (h *HeatRod) StateDim() int { return h.Nodes }

func (h *HeatRod) InitialState() []float64 {
	x := make([]float64, h.Nodes)
	for i := range x {
		x[i] = h.T0
	}
	return x
}

func (h *HeatRod) Blocks() []Block {
	return []Block{{
		Size:          h.Nodes,
		Nnz:           3*h.Nodes - 2,
		EquationIndex: heatRodEquation,
	}}
}

func (h *HeatRod) InitStatic(i int, nominal, min, max []float64) {
	nom := math.Max(math.Max(math.Abs(h.TLeft), math.Abs(h.TRight)), math.Abs(h.T0))
	if nom < 1 {
		nom = 1
	}
	for j := range nominal {
		nominal[j] = nom
		min[j] = 0
		max[j] = 10 * nom
	}
}

func (h *HeatRod) Populate(i int, t, dt float64, x []float64, set SetFunc, b []float64) {
	dx := h.Length / float64(h.Nodes+1)
	r := dt * h.Alpha / (dx * dx)

	for j := 0; j < h.Nodes; j++ {
		set(j, j, 1+2*r)
		if j > 0 {
			set(j, j-1, -r)
		}
		if j < h.Nodes-1 {
			set(j, j+1, -r)
		}
		b[j] = x[j]
	}
	b[0] += r * h.TLeft
	b[h.Nodes-1] += r * h.TRight
}

func (h *HeatRod) Apply(i int, xsol, x []float64) {
	copy(x, xsol)
}

func (h *HeatRod) EquationName(index int) string {
	if index == heatRodEquation {
		return fmt.Sprintf("%d (heatrod conduction)", index)
	}
	return fmt.Sprintf("%d", index)
}

func (h *HeatRod) Params() map[string]float64 {
	return map[string]float64{
		"alpha":  h.Alpha,
		"tleft":  h.TLeft,
		"tright": h.TRight,
	}
}

func (h *HeatRod) SetParam(name string, value float64) error {
	switch name {
	case "alpha":
		if value <= 0 {
			return fmt.Errorf("alpha must be positive, got %g", value)
		}
		h.Alpha = value
	case "tleft":
		h.TLeft = value
	case "tright":
		h.TRight = value
	default:
		return fmt.Errorf("heatrod has no parameter %q", name)
	}
	return nil
}
