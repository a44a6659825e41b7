package model

import (
	"fmt"
	"math"
)

// SpringChain models a chain of masses coupled by springs between two fixed
// walls, with viscous damping. The state is [q_0..q_{m-1}, v_0..v_{m-1}]
// (displacements, then velocities). One backward-Euler step couples all
// positions and velocities into a single linear block of size 2m.
type SpringChain struct {
	Masses    int
	Mass      float64
	Stiffness float64
	Damping   float64
	Q0        float64 // initial displacement of the first mass
}

const springChainEquation = 2001

func NewSpringChain() *SpringChain {
	return &SpringChain{
		Masses:    4,
		Mass:      1.0,
		Stiffness: 40.0,
		Damping:   0.8,
		Q0:        0.25,
	}
}

func (s *SpringChain) Name() string  { return "springchain" }
func (s *SpringChain) StateDim() int { return 2 * s.Masses }

func (s *SpringChain) InitialState() []float64 {
	x := make([]float64, 2*s.Masses)
	x[0] = s.Q0
	return x
}

func (s *SpringChain) Blocks() []Block {
	m := s.Masses
	// position rows carry 2 entries each, velocity rows a diagonal entry
	// plus the tridiagonal stiffness stencil
	nnz := 2*m + m + (3*m - 2)
	return []Block{{
		Size:          2 * m,
		Nnz:           nnz,
		EquationIndex: springChainEquation,
		InitJacobian: func() error {
			if s.Mass <= 0 {
				return fmt.Errorf("mass must be positive, got %g", s.Mass)
			}
			return nil
		},
	}}
}

func (s *SpringChain) InitStatic(i int, nominal, min, max []float64) {
	m := s.Masses
	qNom := math.Abs(s.Q0)
	if qNom < 1e-3 {
		qNom = 1e-3
	}
	vNom := qNom * math.Sqrt(s.Stiffness/s.Mass)
	for j := 0; j < m; j++ {
		nominal[j] = qNom
		min[j] = -100 * qNom
		max[j] = 100 * qNom
		nominal[m+j] = vNom
		min[m+j] = -100 * vNom
		max[m+j] = 100 * vNom
	}
}

// Populate stamps the implicit step
//
//	q' = v
//	v' = (k*(q_{j-1} - 2q_j + q_{j+1}) - c*v_j) / mass
//
// with fixed walls at both ends (q_{-1} = q_m = 0).
func (s *SpringChain) Populate(i int, t, dt float64, x []float64, set SetFunc, b []float64) {
	m := s.Masses
	km := dt * s.Stiffness / s.Mass
	cm := dt * s.Damping / s.Mass

	for j := 0; j < m; j++ {
		// position row: q_new - dt*v_new = q_old
		set(j, j, 1)
		set(j, m+j, -dt)
		b[j] = x[j]

		// velocity row: v_new + km*(2q_j - q_{j-1} - q_{j+1}) + cm*v_new = v_old
		set(m+j, m+j, 1+cm)
		set(m+j, j, 2*km)
		if j > 0 {
			set(m+j, j-1, -km)
		}
		if j < m-1 {
			set(m+j, j+1, -km)
		}
		b[m+j] = x[m+j]
	}
}

func (s *SpringChain) Apply(i int, xsol, x []float64) {
	copy(x, xsol)
}

func (s *SpringChain) EquationName(index int) string {
	if index == springChainEquation {
		return fmt.Sprintf("%d (springchain dynamics)", index)
	}
	return fmt.Sprintf("%d", index)
}

func (s *SpringChain) Params() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
		"damping":   s.Damping,
	}
}

func (s *SpringChain) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("mass must be positive, got %g", value)
		}
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	default:
		return fmt.Errorf("springchain has no parameter %q", name)
	}
	return nil
}
