package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/engines/limiter"
)

func newPlanCommand(v *viper.Viper, deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Solve the cost-optimal system of one or more model definitions",
		Example: `  planner plan -f two_region.yaml
  planner plan -f low.yaml -f high.yaml --budget emissions=500 --parallel 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, v, deps)
		},
	}
	cmd.Flags().StringToString(flagBudget, nil, "cost ceiling as class=limit")
	cmd.Flags().Int(flagParallel, 0, "scenarios solved at once, 0 for no limit")
	return cmd
}

func runPlan(cmd *cobra.Command, v *viper.Viper, deps *Dependencies) error {
	env, err := newEnvironment(cmd, v, deps, v.GetInt(flagParallel))
	if err != nil {
		return err
	}
	cfgs, err := env.loadConfigs()
	if err != nil {
		return err
	}

	raw, err := cmd.Flags().GetStringToString(flagBudget)
	if err != nil {
		return err
	}
	budgets, err := parseBudgets(raw)
	if err != nil {
		return err
	}
	lim, err := limiter.NewLimiter(limiter.BudgetStrategy, 0, budgets)
	if err != nil {
		return err
	}
	limits, err := lim.Limits(env.ctx, nil)
	if err != nil {
		return err
	}
	opts := constraints.Options{ObjectiveClass: v.GetString(flagObjectiveClass), CostLimits: limits}

	results, err := env.optimizer.RunScenarios(env.ctx, cfgs, opts)
	if err != nil {
		return err
	}

	now := env.now()
	reports := make([]report, 0, len(results))
	for _, r := range results {
		reports = append(reports, planReport(r, now))
	}
	if err := env.write(reports...); err != nil {
		return err
	}
	ctrl.LoggerFrom(env.ctx).Info("Planning complete", "scenarios", len(results))
	return env.flushMetrics()
}
