package spores

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
)

var _ = Describe("Scores", func() {
	pv := sets.Pair{Tech: "pv", Location: "region2"}
	ccgt := sets.Pair{Tech: "ccgt", Location: "region1"}

	It("never modifies a snapshot", func() {
		s0 := NewScores(nil)
		s1 := s0.Next(map[sets.Pair]float64{pv: 2})
		s2 := s1.Next(map[sets.Pair]float64{pv: 3, ccgt: 1})

		Expect(s0.Len()).To(BeZero())
		Expect(s1.Get(pv)).To(Equal(2.0))
		Expect(s1.Get(ccgt)).To(BeZero())
		Expect(s2.Get(pv)).To(Equal(5.0))
		Expect(s2.Total()).To(Equal(6.0))
		Expect(s2.Pairs()).To(Equal([]sets.Pair{ccgt, pv}))
	})

	It("copies its input", func() {
		in := map[sets.Pair]float64{pv: 1}
		s := NewScores(in)
		in[pv] = 7
		Expect(s.Get(pv)).To(Equal(1.0))
	})
})

var _ = Describe("revise", func() {
	var base *config.Config

	BeforeEach(func() {
		var err error
		base, err = config.LoadFile(samplePath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("declares the score class and writes scores as capacity costs", func() {
		opts, err := Options{}.withDefaults()
		Expect(err).NotTo(HaveOccurred())
		scores := NewScores(map[sets.Pair]float64{{Tech: "hvac:region2", Location: "region1"}: 4})

		cfg := revise(base, scores, opts, 2)

		Expect(cfg.CostClasses).To(Equal([]string{"monetary", "emissions", DefaultScoreClass}))
		Expect(*cfg.Iteration).To(Equal(2))
		v, ok := cfg.Techs[config.DefaultsTech].Lookup("costs.spores_score.om_var")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(0.0))
		v, ok = cfg.Locations["region1"].Override["hvac:region2"].Lookup("costs.spores_score.e_cap")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(4.0))

		Expect(base.Iteration).To(BeNil())
		Expect(base.CostClasses).To(HaveLen(2))
		_, ok = base.Techs[config.DefaultsTech].Lookup("costs.spores_score")
		Expect(ok).To(BeFalse())
	})

	It("creates the defaults technology when absent", func() {
		delete(base.Techs, config.DefaultsTech)
		opts, err := Options{ScoreClass: "novelty"}.withDefaults()
		Expect(err).NotTo(HaveOccurred())

		cfg := revise(base, NewScores(nil), opts, 0)
		_, ok := cfg.Techs[config.DefaultsTech].Lookup("costs.novelty.e_cap")
		Expect(ok).To(BeTrue())
	})

	It("does not declare the score class twice", func() {
		base.CostClasses = append(base.CostClasses, DefaultScoreClass)
		opts, err := Options{}.withDefaults()
		Expect(err).NotTo(HaveOccurred())
		Expect(revise(base, NewScores(nil), opts, 1).CostClasses).To(HaveLen(3))
	})
})

var _ = Describe("Options", func() {
	It("applies defaults", func() {
		opts, err := Options{Iterations: 2}.withDefaults()
		Expect(err).NotTo(HaveOccurred())
		Expect(opts.ObjectiveClass).To(Equal(config.DefaultCostClass))
		Expect(opts.ScoreClass).To(Equal(DefaultScoreClass))
		Expect(opts.ScoreIncrement).To(Equal(DefaultScoreIncrement))
	})

	DescribeTable("rejects",
		func(opts Options) {
			_, err := opts.withDefaults()
			Expect(err).To(MatchError(ContainSubstring("invalid SPORES options")))
		},
		Entry("negative iterations", Options{Iterations: -1}),
		Entry("negative slack", Options{Slack: -0.1}),
		Entry("negative threshold", Options{ScoreThreshold: -1}),
		Entry("scoring the objective class", Options{ScoreClass: "monetary"}),
	)
})
