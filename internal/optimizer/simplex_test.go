package optimizer

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

const solveTolerance = 1e-6

// zeroEfficiencyModel has a cheap generator with zero efficiency next to an
// expensive one, both facing a fixed demand of 3 per step.
const zeroEfficiencyModel = `
name: zero-efficiency
carriers:
  power:
    strict: true
techs:
  gen:
    carrier: power
    constraints:
      e_eff: 0
      e_cap_max: 5
    costs:
      monetary:
        e_cap: 1
  backup:
    carrier: power
    constraints:
      e_cap_max: 10
    costs:
      monetary:
        e_cap: 100
        om_var: 1
  demand:
    carrier: power
    constraints:
      force_r: true
      e_can_be_negative: true
locations:
  x:
    level: 1
    techs: [gen, backup, demand]
time:
  steps:
    - {label: t0, duration: 1}
    - {label: t1, duration: 1}
data:
  resource:
    demand:
      x: [-3, -3]
`

var _ = Describe("Optimizer with the simplex backend", func() {
	var (
		ctx context.Context
		opt *Optimizer
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		opt, err = NewOptimizer(&OptimizerConfig{Solver: solver.NewSimplex(solver.SimplexConfig{})})
		Expect(err).NotTo(HaveOccurred())
	})

	Context("two-region sample", func() {
		var sol *core.Solution

		BeforeEach(func() {
			cfg := loadSample()
			cfg.Time.Cyclic = false
			cfg.Time.Steps[1].Duration = 2
			// region1 holds a fixed store with no flows, region2 holds none
			cfg.Techs["battery"].Set("constraints.e_cap_max", 0.0)
			cfg.Techs["battery"].Set("constraints.s_cap_max", 50.0)
			cfg.Techs["battery"].Set("constraints.s_cap_max_force", true)
			cfg.Techs["battery"].Set("constraints.s_init_frac", 1.0)
			cfg.Techs["battery"].Set("constraints.s_loss", 0.1)
			cfg.SetOverride("region2", "battery", "constraints.s_cap_max", 0.0)

			var err error
			_, sol, err = opt.Run(ctx, cfg, constraints.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.IsOptimal()).To(BeTrue())
		})

		It("decays stored energy by (1 - s_loss)^duration", func() {
			level := 50.0
			for _, st := range []struct {
				step     string
				duration float64
			}{{"t00", 1}, {"t01", 2}, {"t02", 1}, {"t03", 1}} {
				level *= math.Pow(0.9, st.duration)
				Expect(sol.Value(constraints.VarStorage, "battery", "region1", st.step)).
					To(BeNumerically("~", level, solveTolerance), st.step)
			}
		})

		It("keeps no energy in a technology without storage", func() {
			for _, step := range []string{"t00", "t01", "t02", "t03"} {
				Expect(sol.Value(constraints.VarStorage, "battery", "region2", step)).
					To(BeNumerically("~", 0, solveTolerance), step)
			}
			Expect(sol.Value(constraints.VarStorageCap, "battery", "region2")).
				To(BeNumerically("~", 0, solveTolerance))
		})

		It("builds both ends of a link to the same capacity", func() {
			there := sol.Value(constraints.VarCap, "hvac:region2", "region1")
			back := sol.Value(constraints.VarCap, "hvac:region1", "region2")
			Expect(there).To(BeNumerically(">", solveTolerance))
			Expect(there).To(BeNumerically("~", back, solveTolerance))
		})
	})

	Context("zero efficiency", func() {
		It("produces nothing from a technology with zero efficiency", func() {
			cfg, err := config.Parse([]byte(zeroEfficiencyModel))
			Expect(err).NotTo(HaveOccurred())

			_, sol, err := opt.Run(ctx, cfg, constraints.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.IsOptimal()).To(BeTrue())

			for _, step := range []string{"t0", "t1"} {
				Expect(sol.Value(constraints.VarProd, "power", "gen", "x", step)).
					To(BeNumerically("~", 0, solveTolerance), step)
				Expect(sol.Value(constraints.VarProd, "power", "backup", "x", step)).
					To(BeNumerically("~", 3, solveTolerance), step)
			}
			Expect(sol.Value(constraints.VarCap, "backup", "x")).To(BeNumerically("~", 3, solveTolerance))
		})
	})
})
