package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/logging"
	"github.com/energymodels/capacityplanner/internal/metrics"
	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

var tracer = otel.Tracer("capacityplanner/optimizer")

// NoIteration marks a solve that is not part of a SPORES run.
const NoIteration = -1

// Problem is a built model together with the inputs it was built from.
type Problem struct {
	Config   *config.Config
	Resolver *config.Resolver
	Sets     *sets.Sets
	Model    *core.Model
	Options  constraints.Options
}

// Build validates cfg and builds its model.
func Build(ctx context.Context, cfg *config.Config, opts constraints.Options) (*Problem, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	ctx, span := tracer.Start(ctx, "optimizer.Build",
		trace.WithAttributes(attribute.String("model", cfg.Name)))
	defer span.End()

	p, err := build(ctx, cfg, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("variables", p.Model.NumVars()),
		attribute.Int("constraints", p.Model.NumConstraints()),
	)
	span.SetStatus(codes.Ok, "")
	return p, nil
}

func build(ctx context.Context, cfg *config.Config, opts constraints.Options) (*Problem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := config.NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	s, err := sets.Build(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to build index sets: %w", err)
	}
	m, err := constraints.Build(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	return &Problem{Config: cfg, Resolver: r, Sets: s, Model: m, Options: opts}, nil
}

// OptimizerConfig holds configuration for the Optimizer.
type OptimizerConfig struct {
	// Solver solves built models. Required.
	Solver solver.Solver

	// Metrics receives build and solve measurements. Optional.
	Metrics *metrics.Metrics

	// MaxParallel bounds the scenarios solved at once by RunScenarios. Zero means no limit.
	MaxParallel int
}

// Optimizer solves built problems.
type Optimizer struct {
	config *OptimizerConfig
}

// NewOptimizer creates a new Optimizer instance.
func NewOptimizer(config *OptimizerConfig) (*Optimizer, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Solver == nil {
		return nil, fmt.Errorf("solver cannot be nil")
	}
	if config.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be non-negative, got %d", config.MaxParallel)
	}
	return &Optimizer{config: config}, nil
}

// Metrics returns the configured metrics, which may be nil.
func (o *Optimizer) Metrics() *metrics.Metrics {
	return o.config.Metrics
}

// Solve solves p outside a SPORES run.
func (o *Optimizer) Solve(ctx context.Context, p *Problem) (*core.Solution, error) {
	return o.SolveIteration(ctx, p, NoIteration)
}

// SolveIteration solves p and reports a non-optimal termination as a SolveFailure
// carrying iteration.
func (o *Optimizer) SolveIteration(ctx context.Context, p *Problem, iteration int) (*core.Solution, error) {
	logger := ctrl.LoggerFrom(ctx)
	ctx, span := tracer.Start(ctx, "optimizer.Solve",
		trace.WithAttributes(
			attribute.String("model", p.Config.Name),
			attribute.Int("iteration", iteration),
			attribute.Int("variables", p.Model.NumVars()),
			attribute.Int("constraints", p.Model.NumConstraints()),
		))
	defer span.End()
	o.config.Metrics.RecordBuild(p.Config.Name, p.Model.NumVars(), p.Model.NumConstraints())

	start := time.Now()
	sol, err := o.config.Solver.Solve(ctx, p.Model)
	elapsed := time.Since(start)
	if err == nil && sol == nil {
		err = errors.New("solver returned no solution")
	}
	if err != nil {
		o.config.Metrics.RecordSolve("error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("solver backend failed: %w", err)
	}

	o.config.Metrics.RecordSolve(sol.Status.String(), elapsed)
	span.SetAttributes(attribute.String("status", sol.Status.String()))
	if !sol.IsOptimal() {
		failure := &solver.SolveFailure{Status: sol.Status, Iteration: iteration}
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		logger.Info("Solve did not reach optimality",
			"model", p.Config.Name,
			"iteration", iteration,
			"status", sol.Status.String())
		return sol, failure
	}

	span.SetStatus(codes.Ok, "")
	logger.V(logging.DEBUG).Info("Solved model",
		"model", p.Config.Name,
		"iteration", iteration,
		"objective", sol.Objective,
		"duration", elapsed)
	return sol, nil
}

// Run builds cfg and solves it once.
func (o *Optimizer) Run(ctx context.Context, cfg *config.Config, opts constraints.Options) (*Problem, *core.Solution, error) {
	p, err := Build(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	sol, err := o.Solve(ctx, p)
	return p, sol, err
}
