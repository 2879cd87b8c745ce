package core

import (
	"fmt"
)

// ObjectiveSense is the optimization direction.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Objective is the expression to optimize.
type Objective struct {
	Sense ObjectiveSense
	Expr  LinExpr
}

// Model is a linear program under construction.
// A Model is not safe for concurrent mutation; generators run sequentially.
type Model struct {
	vars        []Variable
	varByKey    map[string]VarID
	constraints []Constraint
	conByKey    map[string]int
	families    map[string][]int
	objective   Objective
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		varByKey: make(map[string]VarID),
		conByKey: make(map[string]int),
		families: make(map[string][]int),
	}
}

// AddVar declares a variable and returns its ID. Declaring the same family member
// twice returns the existing ID.
func (m *Model) AddVar(family string, domain Domain, idx ...string) VarID {
	key := Key(family, idx)
	if id, ok := m.varByKey[key]; ok {
		return id
	}
	id := VarID(len(m.vars))
	m.vars = append(m.vars, Variable{
		ID:     id,
		Family: family,
		Index:  append(Index(nil), idx...),
		Domain: domain,
	})
	m.varByKey[key] = id
	return id
}

// Var looks up a declared variable.
func (m *Model) Var(family string, idx ...string) (VarID, bool) {
	id, ok := m.varByKey[Key(family, idx)]
	return id, ok
}

// MustVar looks up a variable that the caller has declared itself.
// It panics when the variable is missing, which is a programming error in a generator.
func (m *Model) MustVar(family string, idx ...string) VarID {
	id, ok := m.Var(family, idx...)
	if !ok {
		panic(fmt.Sprintf("core: variable %s not declared", Key(family, idx)))
	}
	return id
}

// Variable returns the declaration of id.
func (m *Model) Variable(id VarID) Variable {
	return m.vars[id]
}

// Variables returns all declared variables in declaration order.
func (m *Model) Variables() []Variable {
	return m.vars
}

// NumVars returns the number of declared variables.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// Add records the constraint for family member idx when ok is true and reports whether
// it was recorded. Generators return (constraint, false) for index tuples with no constraint.
func (m *Model) Add(family string, idx Index, c Constraint, ok ...bool) bool {
	if len(ok) > 0 && !ok[0] {
		return false
	}
	c.Family = family
	c.Index = append(Index(nil), idx...)
	key := c.Name()
	if pos, exists := m.conByKey[key]; exists {
		m.constraints[pos] = c
		return true
	}
	m.conByKey[key] = len(m.constraints)
	m.families[family] = append(m.families[family], len(m.constraints))
	m.constraints = append(m.constraints, c)
	return true
}

// Constraints returns all constraints in emission order.
func (m *Model) Constraints() []Constraint {
	return m.constraints
}

// NumConstraints returns the number of recorded constraints.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Family returns the constraints of one family in emission order.
func (m *Model) Family(name string) []Constraint {
	pos := m.families[name]
	out := make([]Constraint, 0, len(pos))
	for _, p := range pos {
		out = append(out, m.constraints[p])
	}
	return out
}

// Constraint looks up a single family member.
func (m *Model) Constraint(family string, idx ...string) (Constraint, bool) {
	p, ok := m.conByKey[Key(family, idx)]
	if !ok {
		return Constraint{}, false
	}
	return m.constraints[p], true
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(sense ObjectiveSense, e LinExpr) {
	m.objective = Objective{Sense: sense, Expr: e.Compact()}
}

// Objective returns the current objective.
func (m *Model) Objective() Objective {
	return m.objective
}
