package spores

import (
	"k8s.io/utils/ptr"

	"github.com/energymodels/capacityplanner/pkg/config"
)

// revise returns a copy of base for iteration: the score class is declared, every unit
// cost of the score class defaults to zero, and each scored pair carries its score as
// the score-class cost of capacity.
func revise(base *config.Config, scores Scores, opts Options, iteration int) *config.Config {
	cfg := base.DeepCopy()

	classes := append([]string(nil), cfg.EffectiveCostClasses()...)
	declared := false
	for _, k := range classes {
		if k == opts.ScoreClass {
			declared = true
			break
		}
	}
	if !declared {
		classes = append(classes, opts.ScoreClass)
	}
	cfg.CostClasses = classes

	defaults, ok := cfg.Techs[config.DefaultsTech]
	if !ok {
		defaults = config.Tree{}
		cfg.Techs[config.DefaultsTech] = defaults
	}
	for _, name := range config.CostNames {
		defaults.Set(config.CostKey(opts.ScoreClass, name), 0.0)
	}

	for _, p := range scores.Pairs() {
		cfg.SetOverride(p.Location, p.Tech, config.CostKey(opts.ScoreClass, config.CostECap), scores.Get(p))
	}
	cfg.Iteration = ptr.To(iteration)
	return cfg
}
