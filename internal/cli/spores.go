package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/spores"
)

func newSporesCommand(v *viper.Viper, deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spores",
		Short: "Explore near-optimal alternatives of a model definition",
		Long: `spores solves the cost-optimal system, then repeatedly minimizes a diversity
score while keeping the cost within the slack of the optimum.`,
		Example: `  planner spores -f two_region.yaml --iterations 5 --slack 0.1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSpores(cmd, v, deps)
		},
	}
	f := cmd.Flags()
	f.Int(flagIterations, 3, "slack-constrained iterations after the cost-optimal one")
	f.Float64(flagSlack, 0.1, "relative cost increase tolerated over the optimum")
	f.String(flagScoreClass, spores.DefaultScoreClass, "cost class holding the diversity scores")
	f.Float64(flagScoreIncrement, spores.DefaultScoreIncrement, "score added per unit of additional capacity")
	f.Float64(flagScoreThreshold, 0, "additional capacity a pair must exceed to be scored")
	return cmd
}

func runSpores(cmd *cobra.Command, v *viper.Viper, deps *Dependencies) error {
	env, err := newEnvironment(cmd, v, deps, 0)
	if err != nil {
		return err
	}
	cfgs, err := env.loadConfigs()
	if err != nil {
		return err
	}
	if len(cfgs) != 1 {
		return fmt.Errorf("spores takes exactly one --%s, got %d", flagConfig, len(cfgs))
	}

	controller, err := spores.NewController(&spores.ControllerConfig{
		Optimizer: env.optimizer,
		Options: spores.Options{
			Iterations:     v.GetInt(flagIterations),
			Slack:          v.GetFloat64(flagSlack),
			ObjectiveClass: v.GetString(flagObjectiveClass),
			ScoreClass:     v.GetString(flagScoreClass),
			ScoreIncrement: v.GetFloat64(flagScoreIncrement),
			ScoreThreshold: v.GetFloat64(flagScoreThreshold),
		},
	})
	if err != nil {
		return err
	}

	result, runErr := controller.Run(env.ctx, cfgs[0])
	if result == nil {
		return runErr
	}
	if err := env.write(sporesReport(result, controller.Options(), runErr, env.now())); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	ctrl.LoggerFrom(env.ctx).Info("SPORES run complete",
		"run", result.RunID.String(),
		"iterations", len(result.Iterations))
	return env.flushMetrics()
}
