package optimizer

import (
	"context"
	"errors"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/metrics"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

const samplePath = "../../config/samples/two_region.yaml"

func loadSample() *config.Config {
	cfg, err := config.LoadFile(samplePath)
	Expect(err).NotTo(HaveOccurred())
	return cfg
}

// statusSolver reports status with every variable at zero.
func statusSolver(status core.Status, calls *atomic.Int32) solver.Solver {
	return solver.SolveFunc(func(ctx context.Context, m *core.Model) (*core.Solution, error) {
		if calls != nil {
			calls.Add(1)
		}
		return core.NewSolution(m, status, 0, make([]float64, m.NumVars())), nil
	})
}

var _ = Describe("Optimizer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("NewOptimizer", func() {
		It("rejects a nil config", func() {
			_, err := NewOptimizer(nil)
			Expect(err).To(MatchError(ContainSubstring("config cannot be nil")))
		})

		It("rejects a missing solver", func() {
			_, err := NewOptimizer(&OptimizerConfig{})
			Expect(err).To(MatchError(ContainSubstring("solver cannot be nil")))
		})

		It("rejects a negative parallelism bound", func() {
			_, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusOptimal, nil), MaxParallel: -1})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Build", func() {
		It("builds the sample model", func() {
			p, err := Build(ctx, loadSample(), constraints.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Model.NumVars()).To(BeNumerically(">", 0))
			Expect(p.Model.Family(constraints.FamSystemBalance)).NotTo(BeEmpty())
			Expect(p.Sets.Parents).To(Equal([]string{"region1", "region2"}))
			Expect(p.Options.ObjectiveClass).To(BeEmpty())
		})

		It("fails fast on an invalid model definition", func() {
			cfg := loadSample()
			cfg.Time.Steps = nil
			_, err := Build(ctx, cfg, constraints.Options{})
			Expect(errors.Is(err, config.ErrConfiguration)).To(BeTrue())
		})

		It("fails on an unresolvable option", func() {
			cfg := loadSample()
			delete(cfg.Techs["ccgt"], "carrier")
			_, err := Build(ctx, cfg, constraints.Options{})
			Expect(errors.Is(err, config.ErrConfiguration)).To(BeTrue())
		})

		It("rejects a nil config", func() {
			_, err := Build(ctx, nil, constraints.Options{})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Solve", func() {
		var (
			reg *prometheus.Registry
			m   *metrics.Metrics
		)

		BeforeEach(func() {
			reg = prometheus.NewRegistry()
			m = metrics.NewMetrics(reg)
		})

		It("returns an optimal solution and records metrics", func() {
			opt, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusOptimal, nil), Metrics: m})
			Expect(err).NotTo(HaveOccurred())

			p, sol, err := opt.Run(ctx, loadSample(), constraints.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.IsOptimal()).To(BeTrue())
			Expect(sol.Value(constraints.VarCap, "ccgt", "region1")).To(BeZero())

			Expect(testutil.ToFloat64(m.SolvesTotal.WithLabelValues("optimal"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(m.ModelVariables.WithLabelValues("two-region"))).
				To(Equal(float64(p.Model.NumVars())))
		})

		It("surfaces a non-optimal status as a SolveFailure", func() {
			opt, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusInfeasible, nil), Metrics: m})
			Expect(err).NotTo(HaveOccurred())
			p, err := Build(ctx, loadSample(), constraints.Options{})
			Expect(err).NotTo(HaveOccurred())

			sol, err := opt.SolveIteration(ctx, p, 3)
			Expect(errors.Is(err, solver.ErrSolveFailed)).To(BeTrue())
			var failure *solver.SolveFailure
			Expect(errors.As(err, &failure)).To(BeTrue())
			Expect(failure.Status).To(Equal(core.StatusInfeasible))
			Expect(failure.Iteration).To(Equal(3))
			Expect(sol.Status).To(Equal(core.StatusInfeasible))
			Expect(testutil.ToFloat64(m.SolvesTotal.WithLabelValues("infeasible"))).To(Equal(1.0))
		})

		It("reports iteration -1 outside a SPORES run", func() {
			opt, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusOther, nil)})
			Expect(err).NotTo(HaveOccurred())
			_, _, err = opt.Run(ctx, loadSample(), constraints.Options{})
			var failure *solver.SolveFailure
			Expect(errors.As(err, &failure)).To(BeTrue())
			Expect(failure.Iteration).To(Equal(NoIteration))
		})

		It("wraps backend errors", func() {
			backend := errors.New("license expired")
			opt, err := NewOptimizer(&OptimizerConfig{
				Solver: solver.SolveFunc(func(context.Context, *core.Model) (*core.Solution, error) {
					return nil, backend
				}),
				Metrics: m,
			})
			Expect(err).NotTo(HaveOccurred())
			_, _, err = opt.Run(ctx, loadSample(), constraints.Options{})
			Expect(errors.Is(err, backend)).To(BeTrue())
			Expect(errors.Is(err, solver.ErrSolveFailed)).To(BeFalse())
			Expect(testutil.ToFloat64(m.SolvesTotal.WithLabelValues("error"))).To(Equal(1.0))
		})

		It("treats a nil solution as a backend error", func() {
			opt, err := NewOptimizer(&OptimizerConfig{
				Solver: solver.SolveFunc(func(context.Context, *core.Model) (*core.Solution, error) {
					return nil, nil
				}),
			})
			Expect(err).NotTo(HaveOccurred())
			_, _, err = opt.Run(ctx, loadSample(), constraints.Options{})
			Expect(err).To(MatchError(ContainSubstring("no solution")))
		})
	})

	Context("tracing", func() {
		var recorder *tracetest.SpanRecorder

		BeforeEach(func() {
			recorder = tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			otel.SetTracerProvider(tp)
			DeferCleanup(func() {
				Expect(tp.Shutdown(context.Background())).To(Succeed())
			})
		})

		It("records build and solve spans", func() {
			opt, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusInfeasible, nil)})
			Expect(err).NotTo(HaveOccurred())
			_, _, err = opt.Run(ctx, loadSample(), constraints.Options{})
			Expect(err).To(HaveOccurred())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(2))
			Expect(spans[0].Name()).To(Equal("optimizer.Build"))
			Expect(spans[0].Status().Code).To(Equal(codes.Ok))
			Expect(spans[1].Name()).To(Equal("optimizer.Solve"))
			Expect(spans[1].Status().Code).To(Equal(codes.Error))
		})
	})

	Context("RunScenarios", func() {
		scenarios := func(names ...string) []*config.Config {
			out := make([]*config.Config, 0, len(names))
			for _, n := range names {
				cfg := loadSample()
				cfg.Name = n
				out = append(out, cfg)
			}
			return out
		}

		It("solves every scenario and keeps input order", func() {
			var calls atomic.Int32
			opt, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusOptimal, &calls), MaxParallel: 2})
			Expect(err).NotTo(HaveOccurred())

			results, err := opt.RunScenarios(ctx, scenarios("low", "mid", "high"), constraints.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(3)))
			Expect(results).To(HaveLen(3))
			Expect(results[0].Name).To(Equal("low"))
			Expect(results[1].Name).To(Equal("mid"))
			Expect(results[2].Name).To(Equal("high"))
			for _, r := range results {
				Expect(r.Solution.IsOptimal()).To(BeTrue())
			}
		})

		It("keeps scenarios independent", func() {
			opt, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusOptimal, nil)})
			Expect(err).NotTo(HaveOccurred())

			cfgs := scenarios("a", "b")
			cfgs[1].Techs["ccgt"].Set("constraints.e_cap_max", 10.0)
			results, err := opt.RunScenarios(ctx, cfgs, constraints.Options{})
			Expect(err).NotTo(HaveOccurred())

			capA, ok := results[0].Problem.Model.Constraint(constraints.FamCap, "ccgt", "region1")
			Expect(ok).To(BeTrue())
			capB, ok := results[1].Problem.Model.Constraint(constraints.FamCap, "ccgt", "region1")
			Expect(ok).To(BeTrue())
			Expect(capA.Expr.Const).To(Equal(-40.0))
			Expect(capB.Expr.Const).To(Equal(-10.0))
		})

		It("names the failing scenario", func() {
			opt, err := NewOptimizer(&OptimizerConfig{Solver: statusSolver(core.StatusOptimal, nil)})
			Expect(err).NotTo(HaveOccurred())

			cfgs := scenarios("ok", "broken")
			cfgs[1].Time.Steps = nil
			_, err = opt.RunScenarios(ctx, cfgs, constraints.Options{})
			Expect(err).To(MatchError(ContainSubstring("scenario broken")))
			Expect(errors.Is(err, config.ErrConfiguration)).To(BeTrue())
		})

		It("falls back to positional names", func() {
			Expect(scenarioName(2, &config.Config{})).To(Equal("scenario-2"))
		})
	})
})
