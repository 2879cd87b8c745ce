package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/energymodels/capacityplanner/pkg/core"
)

// ErrSolveFailed is the sentinel wrapped by SolveFailure.
var ErrSolveFailed = errors.New("solve failed")

// Solver solves a built model. A non-optimal termination is reported through
// Solution.Status; an error means the backend itself failed.
type Solver interface {
	Solve(ctx context.Context, m *core.Model) (*core.Solution, error)
}

// SolveFunc adapts a function to the Solver interface.
type SolveFunc func(ctx context.Context, m *core.Model) (*core.Solution, error)

// Solve calls f(ctx, m).
func (f SolveFunc) Solve(ctx context.Context, m *core.Model) (*core.Solution, error) {
	return f(ctx, m)
}

// SolveFailure reports a solve that ended in a non-optimal status.
// Iteration is the SPORES iteration index, or -1 outside a SPORES run.
type SolveFailure struct {
	Status    core.Status
	Iteration int
}

func (e *SolveFailure) Error() string {
	if e.Iteration < 0 {
		return fmt.Sprintf("solve failed with status %s", e.Status)
	}
	return fmt.Sprintf("solve failed with status %s in iteration %d", e.Status, e.Iteration)
}

func (e *SolveFailure) Unwrap() error {
	return ErrSolveFailed
}
