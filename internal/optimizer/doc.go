// Package optimizer runs the single-solve pipeline of the planner.
//
// The optimizer turns a model definition into a solved linear program:
//
//	Config → Resolver → Sets → Generators → Objective → Solver
//	         (config)   (sets) (constraints)            (solver)
//
// Build performs everything up to the objective and returns a Problem. The Optimizer
// hands a Problem to its Solver and turns any non-optimal termination into a
// solver.SolveFailure. Nothing is retried.
//
// Example usage:
//
//	opt, err := optimizer.NewOptimizer(&optimizer.OptimizerConfig{
//	    Solver: solver.NewSimplex(solver.SimplexConfig{}),
//	})
//	if err != nil {
//	    return err
//	}
//	problem, sol, err := opt.Run(ctx, cfg, constraints.Options{})
//	if err != nil {
//	    log.Error(err, "optimization failed")
//	    return err
//	}
//	log.Info("optimization complete",
//	    "model", cfg.Name,
//	    "variables", problem.Model.NumVars(),
//	    "objective", sol.Objective)
//
// Independent model definitions share no mutable state, so RunScenarios solves them
// in parallel.
package optimizer
