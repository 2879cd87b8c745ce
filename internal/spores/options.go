package spores

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/energymodels/capacityplanner/pkg/config"
)

const (
	// DefaultScoreClass is the cost class holding diversity scores.
	DefaultScoreClass = "spores_score"

	// DefaultScoreIncrement is the score added per unit of additional capacity.
	DefaultScoreIncrement = 1.0
)

var optionsValidate = validator.New()

// Options configures a SPORES run.
type Options struct {
	// Iterations is the number of slack-constrained iterations after the cost-optimal one.
	Iterations int `yaml:"iterations" validate:"gte=0"`

	// Slack is the relative cost increase tolerated over C*.
	Slack float64 `yaml:"slack" validate:"gte=0"`

	// ObjectiveClass is the cost class of the cost-optimal solve. Defaults to monetary.
	ObjectiveClass string `yaml:"objective_class,omitempty"`

	// ScoreClass is the cost class the diversity scores are written to.
	ScoreClass string `yaml:"score_class,omitempty"`

	// ScoreIncrement is added to a pair's score per unit of capacity beyond its
	// forced minimum.
	ScoreIncrement float64 `yaml:"score_increment,omitempty" validate:"gte=0"`

	// ScoreThreshold is the additional capacity a pair must exceed to be scored.
	ScoreThreshold float64 `yaml:"score_threshold,omitempty" validate:"gte=0"`

	// SkipCostOptimal resumes from prior iterations instead of solving for C* again.
	SkipCostOptimal bool `yaml:"skip_cost_optimal,omitempty"`
}

// withDefaults returns a validated copy of o with defaults applied.
func (o Options) withDefaults() (Options, error) {
	if o.ObjectiveClass == "" {
		o.ObjectiveClass = config.DefaultCostClass
	}
	if o.ScoreClass == "" {
		o.ScoreClass = DefaultScoreClass
	}
	if o.ScoreIncrement == 0 {
		o.ScoreIncrement = DefaultScoreIncrement
	}
	if err := optionsValidate.Struct(o); err != nil {
		return o, fmt.Errorf("invalid SPORES options: %w", err)
	}
	if o.ScoreClass == o.ObjectiveClass {
		return o, fmt.Errorf("invalid SPORES options: score class and objective class are both %q", o.ScoreClass)
	}
	return o, nil
}
