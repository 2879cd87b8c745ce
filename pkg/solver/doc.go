// Package solver defines the boundary between the model builder and LP backends.
//
// The solver package contains the Solver interface and a reference backend.
//
// Key Components:
//
//   - Solver: Solve(ctx, model) returning a core.Solution with a termination status
//   - Simplex: dense reference backend on top of gonum's optimize/convex/lp
//   - SolveFailure: error carrying a non-optimal status and the iteration it occurred in
//
// Reference Backend Strategy:
//
// The Simplex backend lowers the model to row/column-bound form and then:
//  1. Fixes columns with equal bounds and substitutes singleton equality rows
//  2. Drops rows left without coefficients, checking that they are satisfied
//  3. Settles columns that appear in no row from their cost and bounds
//  4. Converts the remaining problem to gonum's general form and runs the simplex
//
// Presolve keeps the equality block of small models at full row rank, which gonum
// requires. The backend is dense and intended for small models and tests; production
// runs plug in an external solver through the Solver interface.
//
// Example usage:
//
//	s := solver.NewSimplex(solver.SimplexConfig{Tolerance: 1e-9})
//	sol, err := s.Solve(ctx, model)
//	if err != nil {
//	    return err
//	}
//	if !sol.IsOptimal() {
//	    return &solver.SolveFailure{Status: sol.Status, Iteration: -1}
//	}
package solver
