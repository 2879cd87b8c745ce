package spores

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/energymodels/capacityplanner/internal/optimizer"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

var _ = Describe("Controller with the simplex backend", func() {
	It("keeps the realized monetary cost within C*(1+slack)", func() {
		const slack = 0.5
		opt, err := optimizer.NewOptimizer(&optimizer.OptimizerConfig{Solver: solver.NewSimplex(solver.SimplexConfig{})})
		Expect(err).NotTo(HaveOccurred())
		c, err := NewController(&ControllerConfig{Optimizer: opt, Options: Options{Iterations: 1, Slack: slack}})
		Expect(err).NotTo(HaveOccurred())
		cfg, err := config.LoadFile(samplePath)
		Expect(err).NotTo(HaveOccurred())

		result, err := c.Run(context.Background(), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(HaveLen(2))

		optimal := result.Iterations[0].Snapshot.ClassTotal(config.DefaultCostClass)
		Expect(optimal).To(BeNumerically(">", 0))
		Expect(result.OptimalCost).To(BeNumerically("~", optimal, 1e-9))
		Expect(result.Limits[config.DefaultCostClass]).To(BeNumerically("~", optimal*(1+slack), 1e-9))

		realized := result.Iterations[1].Snapshot.ClassTotal(config.DefaultCostClass)
		Expect(realized).To(BeNumerically("<=", optimal*(1+slack)*(1+1e-6)))
		Expect(realized).To(BeNumerically(">=", optimal*(1-1e-6)))

		// both ends of the link stay equal under the score objective
		for _, it := range result.Iterations {
			there, ok := it.Snapshot.Capacity("hvac:region2", "region1")
			Expect(ok).To(BeTrue())
			back, ok := it.Snapshot.Capacity("hvac:region1", "region2")
			Expect(ok).To(BeTrue())
			Expect(there.ECap).To(BeNumerically("~", back.ECap, 1e-6))
		}
		Expect(result.Iterations[1].Snapshot.ClassTotal(DefaultScoreClass)).To(BeNumerically(">=", 0))
	})
})
