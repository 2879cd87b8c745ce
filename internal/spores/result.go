package spores

import (
	"github.com/google/uuid"

	"github.com/energymodels/capacityplanner/internal/collector"
	"github.com/energymodels/capacityplanner/pkg/config"
)

// Iteration is one solved SPORES iteration.
type Iteration struct {
	// Index is 0 for the cost-optimal solve.
	Index int

	// Config is the revised model definition the iteration was built from.
	Config *config.Config

	Snapshot *collector.Snapshot

	// Scores are the scores the iteration was solved with.
	Scores Scores
}

// Result is the outcome of a SPORES run. On failure it holds every iteration solved
// before the failing one.
type Result struct {
	RunID uuid.UUID
	Model string

	// Base is the model definition the run started from.
	Base *config.Config

	// OptimalCost is C*, the objective-class total of iteration 0.
	OptimalCost float64

	// Limits are the cost ceilings applied from iteration 1 on.
	Limits map[string]float64

	Iterations []Iteration

	// Final are the scores after the last solved iteration.
	Final Scores
}

func newResult(base *config.Config) *Result {
	return &Result{
		RunID: uuid.New(),
		Model: base.Name,
		Base:  base,
		Final: NewScores(nil),
	}
}

// Iteration returns the iteration with index i.
func (r *Result) Iteration(i int) (*Iteration, bool) {
	if r == nil || i < 0 || i >= len(r.Iterations) {
		return nil, false
	}
	return &r.Iterations[i], true
}

// Cost returns cost[y,x,k] of iteration i, zero when it was not solved.
func (r *Result) Cost(i int, tech, loc, class string) float64 {
	it, ok := r.Iteration(i)
	if !ok {
		return 0
	}
	return it.Snapshot.Cost(tech, loc, class)
}

// Capacity returns the capacities of (tech, loc) in iteration i.
func (r *Result) Capacity(i int, tech, loc string) (collector.Capacity, bool) {
	it, ok := r.Iteration(i)
	if !ok {
		return collector.Capacity{}, false
	}
	return it.Snapshot.Capacity(tech, loc)
}

// Truncate returns a copy of r holding only its first n iterations, as if the run had
// stopped there. Iterations are shared with r.
func (r *Result) Truncate(n int) *Result {
	out := *r
	n = min(max(n, 0), len(r.Iterations))
	out.Iterations = append([]Iteration(nil), r.Iterations[:n]...)
	if n < len(r.Iterations) {
		out.Final = r.Iterations[n].Scores
	}
	if r.Limits != nil {
		out.Limits = make(map[string]float64, len(r.Limits))
		for k, v := range r.Limits {
			out.Limits[k] = v
		}
	}
	return &out
}
