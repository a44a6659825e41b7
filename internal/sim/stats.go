package sim

import "github.com/mlundvall/daesim/internal/linsys"

// Metric accumulates per-solve statistics over a run.
type Metric interface {
	Name() string
	Observe(s *linsys.System, t float64)
	Value() float64
	Reset()
}

// SolveCount counts dispatched solves.
type SolveCount struct {
	count int
}

func NewSolveCount() *SolveCount { return &SolveCount{} }

func (c *SolveCount) Name() string { return "solves" }

func (c *SolveCount) Observe(s *linsys.System, t float64) { c.count++ }

func (c *SolveCount) Value() float64 { return float64(c.count) }

func (c *SolveCount) Reset() { c.count = 0 }

// FailureCount counts solves that reported failure.
type FailureCount struct {
	count int
}

func NewFailureCount() *FailureCount { return &FailureCount{} }

func (c *FailureCount) Name() string { return "solve_failures" }

func (c *FailureCount) Observe(s *linsys.System, t float64) {
	if !s.Solved {
		c.count++
	}
}

func (c *FailureCount) Value() float64 { return float64(c.count) }

func (c *FailureCount) Reset() { c.count = 0 }

// FailureRate is the fraction of solves that failed.
type FailureRate struct {
	samples  int
	failures int
}

func NewFailureRate() *FailureRate { return &FailureRate{} }

func (r *FailureRate) Name() string { return "failure_rate" }

func (r *FailureRate) Observe(s *linsys.System, t float64) {
	r.samples++
	if !s.Solved {
		r.failures++
	}
}

func (r *FailureRate) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return float64(r.failures) / float64(r.samples)
}

func (r *FailureRate) Reset() {
	r.samples = 0
	r.failures = 0
}
