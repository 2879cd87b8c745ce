// Package core provides the algebraic model representation shared by the constraint
// generators, the solver adapters and the SPORES controller.
//
// The package contains the data structures that make up a linear program:
//
//   - Variable: a decision variable identified by its family name and index tuple
//   - LinExpr: a sparse linear expression over variables plus a constant term
//   - Constraint: a linear expression related to zero by =, <= or >=
//   - Model: the container that declares variables, collects constraints and holds the objective
//   - Matrix: the lowered row/column-bound form consumed by solver backends
//   - Solution: solver status, objective value and variable values keyed by index tuple
//
// Generators never talk to a solver directly. They declare variables on a Model,
// emit constraints with Model.Add, and hand the Model to a solver.Solver.
//
// Example usage:
//
//	m := core.NewModel()
//	capVar := m.AddVar("e_cap", core.NonNegativeReals, "ccgt", "region1")
//
//	// e_cap[ccgt,region1] <= 100
//	m.Add("c_e_cap", core.Index{"ccgt", "region1"},
//	    core.Le(core.Expr(core.T(capVar, 1)), core.Const(100)))
//
//	m.SetObjective(core.Minimize, core.Expr(core.T(capVar, 1)))
//
// The core package is designed to be:
//   - Deterministic: variables and constraints keep declaration order
//   - Solver independent: no backend types leak into the model
//   - Keyed by full index tuples: a value is always looked up by family and index
package core
