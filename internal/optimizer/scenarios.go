package optimizer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/logging"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// ScenarioResult is the outcome of one scenario of RunScenarios.
type ScenarioResult struct {
	Name     string
	Problem  *Problem
	Solution *core.Solution
}

// RunScenarios builds and solves independent model definitions in parallel. Results
// keep the order of cfgs. The first failure cancels the remaining scenarios.
func (o *Optimizer) RunScenarios(ctx context.Context, cfgs []*config.Config, opts constraints.Options) ([]ScenarioResult, error) {
	logger := ctrl.LoggerFrom(ctx)
	results := make([]ScenarioResult, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	if o.config.MaxParallel > 0 {
		g.SetLimit(o.config.MaxParallel)
	}
	for i, cfg := range cfgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := scenarioName(i, cfg)
			p, sol, err := o.Run(gctx, cfg, opts)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", name, err)
			}
			results[i] = ScenarioResult{Name: name, Problem: p, Solution: sol}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.V(logging.DEBUG).Info("Solved scenarios", "count", len(results))
	return results, nil
}

func scenarioName(i int, cfg *config.Config) string {
	if cfg != nil && cfg.Name != "" {
		return cfg.Name
	}
	return fmt.Sprintf("scenario-%d", i)
}
