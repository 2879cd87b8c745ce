package core

// Status is the termination status reported by a solver.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusOther
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "other"
	}
}

// Solution holds a solver result. Values are keyed by the canonical variable name.
type Solution struct {
	Status    Status
	Objective float64
	Values    map[string]float64
}

// IsOptimal reports whether the solver proved optimality.
func (s *Solution) IsOptimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// NewSolution builds a solution from per-column values of m.
func NewSolution(m *Model, status Status, objective float64, x []float64) *Solution {
	sol := &Solution{
		Status:    status,
		Objective: objective,
		Values:    make(map[string]float64, len(x)),
	}
	for j, v := range x {
		if j >= len(m.vars) {
			break
		}
		sol.Values[m.vars[j].Name()] = v
	}
	return sol
}

// Lookup returns the value of a family member.
func (s *Solution) Lookup(family string, idx ...string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.Values[Key(family, idx)]
	return v, ok
}

// Value returns the value of a family member, or zero when it was not declared.
func (s *Solution) Value(family string, idx ...string) float64 {
	v, _ := s.Lookup(family, idx...)
	return v
}

// Evaluator returns a VarID-indexed accessor suitable for LinExpr.Eval.
func (s *Solution) Evaluator(m *Model) func(VarID) float64 {
	return func(id VarID) float64 {
		return s.Values[m.vars[id].Name()]
	}
}
