package spores

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/collector"
	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/engines/limiter"
	"github.com/energymodels/capacityplanner/internal/optimizer"
	"github.com/energymodels/capacityplanner/pkg/config"
)

var tracer = otel.Tracer("capacityplanner/spores")

// ControllerConfig holds configuration for the Controller.
type ControllerConfig struct {
	// Optimizer solves every iteration. Required.
	Optimizer *optimizer.Optimizer

	Options Options
}

// Controller runs SPORES iterations.
type Controller struct {
	optimizer *optimizer.Optimizer
	options   Options
}

// NewController creates a new Controller instance.
func NewController(config *ControllerConfig) (*Controller, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Optimizer == nil {
		return nil, fmt.Errorf("optimizer cannot be nil")
	}
	opts, err := config.Options.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Controller{optimizer: config.Optimizer, options: opts}, nil
}

// Options returns the options in effect, defaults applied.
func (c *Controller) Options() Options {
	return c.options
}

// Run solves the cost-optimal iteration of cfg followed by the configured number of
// slack-constrained iterations. cfg is not modified.
func (c *Controller) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Iteration != nil {
		return nil, &config.ConfigurationError{
			Key:    "iteration",
			Reason: fmt.Sprintf("model definition already belongs to SPORES iteration %d", *cfg.Iteration),
		}
	}
	if c.options.SkipCostOptimal {
		return nil, errors.New("skip_cost_optimal requires resuming from prior iterations")
	}

	ctx, span := c.startRun(ctx, cfg.Name)
	defer span.End()

	result := newResult(cfg)
	m := newMachine(StateInitialSolve, 0)
	it, next, err := c.solveIteration(ctx, result.Base, m.iteration, NewScores(nil),
		constraints.Options{ObjectiveClass: c.options.ObjectiveClass})
	if err != nil {
		return c.fail(span, m, result, err)
	}
	result.Iterations = append(result.Iterations, it)
	result.Final = next

	result.OptimalCost = it.Snapshot.ClassTotal(c.options.ObjectiveClass)
	if result.Limits, err = c.limits(ctx, result.OptimalCost); err != nil {
		return c.fail(span, m, result, err)
	}
	return c.iterate(ctx, span, m, result)
}

// Resume continues prior without solving its iterations again. The cost-optimal total
// of prior is reused; the scores carry on from its last iteration.
func (c *Controller) Resume(ctx context.Context, prior *Result) (*Result, error) {
	if !c.options.SkipCostOptimal {
		return nil, errors.New("resume requires skip_cost_optimal")
	}
	if prior == nil || len(prior.Iterations) == 0 {
		return nil, errors.New("resume requires at least the cost-optimal iteration")
	}

	ctx, span := c.startRun(ctx, prior.Model)
	defer span.End()

	result := prior.Truncate(len(prior.Iterations))
	last := result.Iterations[len(result.Iterations)-1].Index
	state := StateSlackConstrainedSolve
	if last == 0 {
		state = StateInitialSolve
	}
	m := newMachine(state, last)

	var err error
	if result.Limits, err = c.limits(ctx, result.OptimalCost); err != nil {
		return c.fail(span, m, result, err)
	}
	ctrl.LoggerFrom(ctx).Info("Resuming SPORES run",
		"run", result.RunID.String(),
		"from", last+1,
		"optimalCost", result.OptimalCost)
	return c.iterate(ctx, span, m, result)
}

func (c *Controller) startRun(ctx context.Context, model string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "spores.Run", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Int("iterations", c.options.Iterations),
		attribute.Float64("slack", c.options.Slack),
	))
}

// iterate solves slack-constrained iterations until the configured count is reached.
func (c *Controller) iterate(ctx context.Context, span trace.Span, m *machine, result *Result) (*Result, error) {
	opts := constraints.Options{ObjectiveClass: c.options.ScoreClass, CostLimits: result.Limits}
	for m.iteration < c.options.Iterations {
		if err := ctx.Err(); err != nil {
			return c.fail(span, m, result, err)
		}
		if err := m.advance(); err != nil {
			return c.fail(span, m, result, err)
		}
		it, next, err := c.solveIteration(ctx, result.Base, m.iteration, result.Final, opts)
		if err != nil {
			return c.fail(span, m, result, err)
		}
		result.Iterations = append(result.Iterations, it)
		result.Final = next
	}
	if err := m.terminate(); err != nil {
		return c.fail(span, m, result, err)
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// solveIteration builds and solves iteration i and returns it with the scores for
// the next iteration.
func (c *Controller) solveIteration(ctx context.Context, base *config.Config, i int, scores Scores, opts constraints.Options) (Iteration, Scores, error) {
	logger := ctrl.LoggerFrom(ctx)
	ctx, span := tracer.Start(ctx, "spores.Iteration", trace.WithAttributes(attribute.Int("iteration", i)))
	defer span.End()

	it, next, err := c.solve(ctx, base, i, scores, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return it, scores, err
	}
	c.optimizer.Metrics().RecordIteration(base.Name, next.Total())
	span.SetAttributes(attribute.Float64("score_total", next.Total()))
	span.SetStatus(codes.Ok, "")
	logger.Info("Solved SPORES iteration",
		"model", base.Name,
		"iteration", i,
		"objective", it.Snapshot.Objective,
		"scoredPairs", next.Len(),
		"scoreTotal", next.Total())
	return it, next, nil
}

func (c *Controller) solve(ctx context.Context, base *config.Config, i int, scores Scores, opts constraints.Options) (Iteration, Scores, error) {
	cfg := revise(base, scores, c.options, i)
	p, err := optimizer.Build(ctx, cfg, opts)
	if err != nil {
		return Iteration{}, scores, fmt.Errorf("iteration %d: %w", i, err)
	}
	sol, err := c.optimizer.SolveIteration(ctx, p, i)
	if err != nil {
		return Iteration{}, scores, err
	}
	it := Iteration{Index: i, Config: cfg, Snapshot: collector.Collect(p.Sets, sol, i), Scores: scores}
	inc, err := increments(p, it.Snapshot, c.options)
	if err != nil {
		return Iteration{}, scores, fmt.Errorf("iteration %d: %w", i, err)
	}
	return it, scores.Next(inc), nil
}

func (c *Controller) limits(ctx context.Context, optimal float64) (map[string]float64, error) {
	l, err := limiter.NewSlackLimiter(&limiter.SlackLimiterConfig{
		LimiterConfig: limiter.LimiterConfig{Classes: []string{c.options.ObjectiveClass}},
		Slack:         c.options.Slack,
	})
	if err != nil {
		return nil, err
	}
	return l.Limits(ctx, map[string]float64{c.options.ObjectiveClass: optimal})
}

// fail terminates the run and returns the iterations solved so far with err.
func (c *Controller) fail(span trace.Span, m *machine, result *Result, err error) (*Result, error) {
	if !m.state.IsTerminal() {
		_ = m.terminate()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return result, err
}
