package spores

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"k8s.io/utils/ptr"

	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/metrics"
	"github.com/energymodels/capacityplanner/internal/optimizer"
	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

const samplePath = "../../config/samples/two_region.yaml"

const unitCost = 10.0

// fakeSolver builds every capacity at capacity(call) and charges unitCost per pair to
// the monetary class. It records each model it is given.
type fakeSolver struct {
	mu       sync.Mutex
	models   []*core.Model
	capacity func(call int, tech, loc string) float64
	status   func(call int) core.Status
}

func newFakeSolver() *fakeSolver {
	return &fakeSolver{
		capacity: func(int, string, string) float64 { return 10 },
		status:   func(int) core.Status { return core.StatusOptimal },
	}
}

func (f *fakeSolver) Solve(_ context.Context, m *core.Model) (*core.Solution, error) {
	f.mu.Lock()
	call := len(f.models)
	f.models = append(f.models, m)
	f.mu.Unlock()

	x := make([]float64, m.NumVars())
	for _, v := range m.Variables() {
		switch {
		case v.Family == constraints.VarCap:
			x[v.ID] = f.capacity(call, v.Index[0], v.Index[1])
		case v.Family == constraints.VarCost && v.Index[2] == config.DefaultCostClass:
			x[v.ID] = unitCost
		}
	}
	return core.NewSolution(m, f.status(call), 0, x), nil
}

func (f *fakeSolver) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.models)
}

func (f *fakeSolver) model(call int) *core.Model {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.models[call]
}

var _ solver.Solver = &fakeSolver{}

var _ = Describe("Controller", func() {
	var (
		ctx  context.Context
		fake *fakeSolver
		reg  *prometheus.Registry
		m    *metrics.Metrics
		cfg  *config.Config
	)

	newController := func(opts Options) *Controller {
		opt, err := optimizer.NewOptimizer(&optimizer.OptimizerConfig{Solver: fake, Metrics: m})
		Expect(err).NotTo(HaveOccurred())
		c, err := NewController(&ControllerConfig{Optimizer: opt, Options: opts})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	costLimit := func(model *core.Model) (core.Constraint, bool) {
		return model.Constraint(constraints.FamCostLimit, config.DefaultCostClass)
	}

	BeforeEach(func() {
		ctx = context.Background()
		fake = newFakeSolver()
		reg = prometheus.NewRegistry()
		m = metrics.NewMetrics(reg)
		var err error
		cfg, err = config.LoadFile(samplePath)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("NewController", func() {
		It("rejects a nil config", func() {
			_, err := NewController(nil)
			Expect(err).To(MatchError(ContainSubstring("config cannot be nil")))
		})

		It("rejects a missing optimizer", func() {
			_, err := NewController(&ControllerConfig{})
			Expect(err).To(MatchError(ContainSubstring("optimizer cannot be nil")))
		})

		It("rejects invalid options", func() {
			opt, err := optimizer.NewOptimizer(&optimizer.OptimizerConfig{Solver: fake})
			Expect(err).NotTo(HaveOccurred())
			_, err = NewController(&ControllerConfig{Optimizer: opt, Options: Options{Slack: -1}})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Run", func() {
		It("solves iterations 0 through n", func() {
			c := newController(Options{Iterations: 3, Slack: 0.25})

			result, err := c.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.calls()).To(Equal(4))
			Expect(result.Iterations).To(HaveLen(4))
			for i, it := range result.Iterations {
				Expect(it.Index).To(Equal(i))
				Expect(*it.Config.Iteration).To(Equal(i))
				Expect(it.Snapshot.Status).To(Equal(core.StatusOptimal))
			}
			Expect(result.Model).To(Equal("two-region"))
			Expect(result.RunID.String()).NotTo(BeEmpty())
			Expect(cfg.Iteration).To(BeNil())
		})

		It("bounds the objective class by C*(1+slack) after the cost-optimal solve", func() {
			c := newController(Options{Iterations: 2, Slack: 0.25})

			result, err := c.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			pairs := len(result.Iterations[0].Snapshot.Capacities)
			Expect(pairs).To(BeNumerically(">", 0))
			Expect(result.OptimalCost).To(Equal(unitCost * float64(pairs)))
			Expect(result.Limits).To(Equal(map[string]float64{"monetary": result.OptimalCost * 1.25}))

			_, limited := costLimit(fake.model(0))
			Expect(limited).To(BeFalse())
			for call := 1; call < 3; call++ {
				limit, ok := costLimit(fake.model(call))
				Expect(ok).To(BeTrue())
				Expect(limit.Sense).To(Equal(core.LE))
				Expect(limit.Expr.Const).To(Equal(-result.OptimalCost * 1.25))
			}
			for i := 1; i < 3; i++ {
				Expect(result.Iterations[i].Snapshot.ClassTotal("monetary")).
					To(BeNumerically("<=", result.Limits["monetary"]))
			}
		})

		It("minimizes the score class after the cost-optimal solve", func() {
			c := newController(Options{Iterations: 1})
			_, err := c.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			obj0 := fake.model(0).Objective().Expr
			obj1 := fake.model(1).Objective().Expr
			monetary := fake.model(0).MustVar(constraints.VarCost, "ccgt", "region1", "monetary")
			Expect(obj0.Coef(monetary)).To(Equal(1.0))
			score := fake.model(1).MustVar(constraints.VarCost, "ccgt", "region1", DefaultScoreClass)
			Expect(obj1.Coef(score)).To(Equal(1.0))
			monetary = fake.model(1).MustVar(constraints.VarCost, "ccgt", "region1", "monetary")
			Expect(obj1.Coef(monetary)).To(BeZero())
		})

		It("raises scores monotonically and prices capacity by score", func() {
			c := newController(Options{Iterations: 3})

			result, err := c.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			battery := sets.Pair{Tech: "battery", Location: "region1"}
			for i := 1; i < len(result.Iterations); i++ {
				prev, cur := result.Iterations[i-1], result.Iterations[i]
				Expect(cur.Scores.Total()).To(BeNumerically(">", prev.Scores.Total()))
				for _, p := range prev.Scores.Pairs() {
					Expect(cur.Scores.Get(p)).To(BeNumerically(">=", prev.Scores.Get(p)))
				}
				Expect(cur.Snapshot.ClassTotal(DefaultScoreClass)).
					To(BeNumerically(">=", prev.Snapshot.ClassTotal(DefaultScoreClass)))
			}
			Expect(result.Iterations[1].Scores.Get(battery)).To(Equal(10.0))
			Expect(result.Iterations[2].Scores.Get(battery)).To(Equal(20.0))
			Expect(result.Final.Get(battery)).To(Equal(40.0))

			coef := func(call int) float64 {
				model := fake.model(call)
				con, ok := model.Constraint(constraints.FamCostCon, "battery", "region1", DefaultScoreClass)
				Expect(ok).To(BeTrue())
				return con.Expr.Coef(model.MustVar(constraints.VarCap, "battery", "region1"))
			}
			Expect(coef(0)).To(BeZero())
			Expect(coef(1)).NotTo(BeZero())
			Expect(coef(2)).To(BeNumerically("~", 2*coef(1), 1e-12))
		})

		It("scores only capacity beyond the forced minimum", func() {
			cfg.Techs["ccgt"].Set("constraints.e_cap_min", 10.0)
			cfg.Techs["pv"].Set("constraints.e_cap_max_force", true)
			cfg.SetOverride("region1", "battery", "constraints.e_cap_min", 4.0)
			c := newController(Options{Iterations: 1})

			result, err := c.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Final.Get(sets.Pair{Tech: "ccgt", Location: "region1"})).To(BeZero())
			Expect(result.Final.Get(sets.Pair{Tech: "pv", Location: "region2"})).To(BeZero())
			Expect(result.Final.Get(sets.Pair{Tech: "battery", Location: "region1"})).To(Equal(12.0))
			Expect(result.Final.Get(sets.Pair{Tech: "battery", Location: "region2"})).To(Equal(20.0))
		})

		It("ignores capacity at or below the threshold", func() {
			fake.capacity = func(_ int, tech, _ string) float64 {
				if tech == "battery" {
					return 3
				}
				return 10
			}
			c := newController(Options{Iterations: 1, ScoreThreshold: 3, ScoreIncrement: 0.5})

			result, err := c.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Final.Get(sets.Pair{Tech: "battery", Location: "region1"})).To(BeZero())
			Expect(result.Final.Get(sets.Pair{Tech: "ccgt", Location: "region1"})).To(Equal(10.0))
		})

		It("rejects a model definition that is already a SPORES iteration", func() {
			cfg.Iteration = ptr.To(3)
			c := newController(Options{Iterations: 2})

			result, err := c.Run(ctx, cfg)
			Expect(result).To(BeNil())
			Expect(errors.Is(err, config.ErrConfiguration)).To(BeTrue())
			Expect(fake.calls()).To(BeZero())
		})

		It("stops at the first non-optimal iteration and keeps the solved ones", func() {
			fake.status = func(call int) core.Status {
				if call == 2 {
					return core.StatusInfeasible
				}
				return core.StatusOptimal
			}
			c := newController(Options{Iterations: 4})

			result, err := c.Run(ctx, cfg)
			var failure *solver.SolveFailure
			Expect(errors.As(err, &failure)).To(BeTrue())
			Expect(failure.Iteration).To(Equal(2))
			Expect(failure.Status).To(Equal(core.StatusInfeasible))
			Expect(fake.calls()).To(Equal(3))
			Expect(result.Iterations).To(HaveLen(2))
			Expect(result.Final.Total()).To(BeNumerically(">", result.Iterations[1].Scores.Total()))
		})

		It("fails when the cost-optimal solve fails", func() {
			fake.status = func(int) core.Status { return core.StatusUnbounded }
			c := newController(Options{Iterations: 2})

			result, err := c.Run(ctx, cfg)
			Expect(errors.Is(err, solver.ErrSolveFailed)).To(BeTrue())
			Expect(result.Iterations).To(BeEmpty())
			Expect(result.Limits).To(BeNil())
		})

		It("records one iteration metric per solved iteration", func() {
			c := newController(Options{Iterations: 2})
			result, err := c.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(testutil.ToFloat64(m.SporesIterationsTotal.WithLabelValues("two-region"))).To(Equal(3.0))
			Expect(testutil.ToFloat64(m.SporesScoreTotal.WithLabelValues("two-region"))).
				To(Equal(result.Final.Total()))
		})

		It("requires resume when skipping the cost-optimal solve", func() {
			c := newController(Options{Iterations: 2, SkipCostOptimal: true})
			_, err := c.Run(ctx, cfg)
			Expect(err).To(MatchError(ContainSubstring("skip_cost_optimal")))
		})
	})

	Context("Resume", func() {
		It("continues a truncated run exactly as the full run", func() {
			full, err := newController(Options{Iterations: 4, Slack: 0.1}).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.calls()).To(Equal(5))

			prior := full.Truncate(2)
			Expect(prior.Iterations).To(HaveLen(2))

			resumed, err := newController(Options{Iterations: 4, Slack: 0.1, SkipCostOptimal: true}).Resume(ctx, prior)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.calls()).To(Equal(8))
			Expect(resumed).To(Equal(full))
			Expect(prior.Iterations).To(HaveLen(2))
		})

		It("continues from the cost-optimal iteration alone", func() {
			full, err := newController(Options{Iterations: 2}).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			resumed, err := newController(Options{Iterations: 2, SkipCostOptimal: true}).Resume(ctx, full.Truncate(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed).To(Equal(full))
		})

		It("solves nothing when prior is complete", func() {
			full, err := newController(Options{Iterations: 2}).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			calls := fake.calls()

			resumed, err := newController(Options{Iterations: 2, SkipCostOptimal: true}).Resume(ctx, full)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.calls()).To(Equal(calls))
			Expect(resumed.Iterations).To(HaveLen(3))
		})

		It("requires skip_cost_optimal and prior iterations", func() {
			_, err := newController(Options{Iterations: 2}).Resume(ctx, &Result{})
			Expect(err).To(MatchError(ContainSubstring("requires skip_cost_optimal")))

			_, err = newController(Options{Iterations: 2, SkipCostOptimal: true}).Resume(ctx, &Result{})
			Expect(err).To(MatchError(ContainSubstring("cost-optimal iteration")))
		})
	})

	Context("Result", func() {
		It("looks up costs and capacities by iteration", func() {
			result, err := newController(Options{Iterations: 1}).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Cost(0, "ccgt", "region1", "monetary")).To(Equal(unitCost))
			Expect(result.Cost(5, "ccgt", "region1", "monetary")).To(BeZero())
			c, ok := result.Capacity(1, "pv", "region2")
			Expect(ok).To(BeTrue())
			Expect(c.ECap).To(Equal(10.0))
			_, ok = result.Capacity(-1, "pv", "region2")
			Expect(ok).To(BeFalse())
		})
	})
})
