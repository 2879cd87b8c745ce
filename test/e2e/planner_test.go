package e2e

import (
	"context"
	"errors"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/yaml"

	"github.com/energymodels/capacityplanner/api/v1alpha1"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

const singleNode = `name: single-node
cost_classes: [monetary]
carriers:
  power: {strict: true}
techs:
  defaults:
    depreciation: {plant_life: 1, interest: {default: 0}}
  supply:
    carrier: power
    costs:
      monetary: {e_cap: 100}
  demand:
    carrier: power
    constraints: {force_r: true, e_can_be_negative: true}
locations:
  here: {level: 1, techs: [supply, demand]}
time:
  steps:
    - {label: t0, duration: 1}
    - {label: t1, duration: 1}
data:
  resource:
    demand:
      here: [-10, -10]
`

func readPlanReport(path string) v1alpha1.PlanReport {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	var r v1alpha1.PlanReport
	Expect(yaml.Unmarshal(data, &r)).To(Succeed())
	Expect(r.Validate()).To(Succeed())
	return r
}

func readSporesReport(path string) v1alpha1.SporesReport {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	var r v1alpha1.SporesReport
	Expect(yaml.Unmarshal(data, &r)).To(Succeed())
	Expect(r.Validate()).To(Succeed())
	return r
}

func capacityOf(caps []v1alpha1.CapacityStatus, tech, loc string) float64 {
	for _, c := range caps {
		if c.Technology == tech && c.Location == loc {
			return c.ECap
		}
	}
	Fail("no capacity reported for " + tech + " at " + loc)
	return 0
}

var _ = Describe("planner", Ordered, func() {
	var plan v1alpha1.PlanReport

	It("plans the cost-optimal system and writes a report", func() {
		By("running plan with a report file")
		_, err := runPlanner(capacitySolver(), "plan", "-f", samplePath, "-o", workPath("plan.yaml"),
			"--metrics-file", workPath("plan.prom"))
		Expect(err).NotTo(HaveOccurred())

		plan = readPlanReport(workPath("plan.yaml"))
		Expect(plan.Name).To(Equal("two-region"))
		Expect(plan.Status.Termination).To(Equal("optimal"))
		Expect(plan.Status.Conditions).To(ConsistOf(HaveField("Reason", v1alpha1.ReasonOptimal)))
		Expect(capacityOf(plan.Status.Capacities, "hvac:region2", "region1")).To(Equal(5.0))

		By("checking the metrics file")
		metrics, err := os.ReadFile(workPath("plan.prom"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(metrics)).To(ContainSubstring(`capacityplanner_model_variables{model="two-region"}`))
	})

	It("explores alternatives starting from the same cost-optimal system", func() {
		_, err := runPlanner(capacitySolver(), "spores", "-f", samplePath, "-o", workPath("spores.yaml"),
			"--iterations", "3", "--slack", "0.05")
		Expect(err).NotTo(HaveOccurred())

		r := readSporesReport(workPath("spores.yaml"))
		Expect(r.Status.Iterations).To(HaveLen(4))
		first := r.Status.Iterations[0]
		for _, c := range plan.Status.Capacities {
			Expect(capacityOf(first.Capacities, c.Technology, c.Location)).To(Equal(c.ECap))
		}
		Expect(r.Status.OptimalCost).To(Equal(first.ObjectiveCost))
		Expect(r.Status.Limits).To(HaveKeyWithValue("monetary", BeNumerically("~", r.Status.OptimalCost*1.05, 1e-9)))
		for i := 1; i < len(r.Status.Iterations); i++ {
			Expect(r.Status.Iterations[i].ScoreTotal).To(BeNumerically(">", r.Status.Iterations[i-1].ScoreTotal))
		}
	})

	It("gives every SPORES run its own identifier", func() {
		out1, err := runPlanner(capacitySolver(), "spores", "-f", samplePath, "--iterations", "0")
		Expect(err).NotTo(HaveOccurred())
		out2, err := runPlanner(capacitySolver(), "spores", "-f", samplePath, "--iterations", "0")
		Expect(err).NotTo(HaveOccurred())

		var r1, r2 v1alpha1.SporesReport
		Expect(yaml.Unmarshal([]byte(out1), &r1)).To(Succeed())
		Expect(yaml.Unmarshal([]byte(out2), &r2)).To(Succeed())
		Expect(r1.UID).NotTo(Equal(r2.UID))
		Expect(r1.Status.Iterations).To(HaveLen(1))
	})

	It("solves scenario overrides side by side", func() {
		out, err := runPlanner(capacitySolver(), "plan", "-f", samplePath, "-f", samplePath,
			"--override", "cheap-gas=tech: supply_gas\nlocation: region1\noptions:\n  costs:\n    monetary:\n      om_fuel: 0.01\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(out, "kind: PlanReport")).To(Equal(2))
	})

	It("reports a model definition error without solving", func() {
		broken := strings.Replace(singleNode, "carrier: power\n    costs", "costs", 1)
		Expect(os.WriteFile(workPath("broken.yaml"), []byte(broken), 0o600)).To(Succeed())

		_, err := runPlanner(capacitySolver(), "plan", "-f", workPath("broken.yaml"))
		Expect(errors.Is(err, config.ErrConfiguration)).To(BeTrue())
	})

	It("solves a single node with the simplex backend", Label("simplex"), func() {
		if !useSimplex {
			Skip("E2E_SIMPLEX is not set")
		}
		Expect(os.WriteFile(workPath("single.yaml"), []byte(singleNode), 0o600)).To(Succeed())

		_, err := runPlanner(nil, "plan", "-f", workPath("single.yaml"), "-o", workPath("single-report.yaml"))
		Expect(err).NotTo(HaveOccurred())
		r := readPlanReport(workPath("single-report.yaml"))
		Expect(capacityOf(r.Status.Capacities, "supply", "here")).To(BeNumerically("~", 10, 1e-6))
	})

	It("fails a spores run whose slack-constrained iteration is infeasible", func() {
		calls := 0
		flaky := solver.SolveFunc(func(ctx context.Context, m *core.Model) (*core.Solution, error) {
			calls++
			if calls > 1 {
				return core.NewSolution(m, core.StatusInfeasible, 0, make([]float64, m.NumVars())), nil
			}
			return capacitySolver().Solve(ctx, m)
		})
		out, err := runPlanner(flaky, "spores", "-f", samplePath, "--iterations", "2")
		Expect(errors.Is(err, solver.ErrSolveFailed)).To(BeTrue())
		Expect(out).To(ContainSubstring("reason: " + v1alpha1.ReasonSolveFailed))
	})
})
