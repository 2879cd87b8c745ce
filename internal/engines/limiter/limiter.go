package limiter

import (
	"context"
	"fmt"
)

// Limiter derives per-class cost ceilings for a constrained solve.
type Limiter interface {
	// Limits returns the ceiling of each limited cost class given the cost-optimal
	// class totals.
	Limits(ctx context.Context, optimal map[string]float64) (map[string]float64, error)
}

// LimiterStrategy is an enumeration of the different strategies that can be used by the Limiter
type LimiterStrategy int

// enumeration of LimiterStrategy
const (
	SlackStrategy LimiterStrategy = iota
	BudgetStrategy
)

func (s LimiterStrategy) String() string {
	switch s {
	case SlackStrategy:
		return "slack"
	case BudgetStrategy:
		return "budget"
	default:
		return fmt.Sprintf("LimiterStrategy(%d)", int(s))
	}
}

// LimiterConfig holds the settings shared by all strategies.
type LimiterConfig struct {
	// Classes lists the cost classes to limit.
	Classes []string
}

// NewLimiter is a factory that creates a new Limiter based on the provided strategy
func NewLimiter(strategy LimiterStrategy, slack float64, budgets map[string]float64) (Limiter, error) {
	switch strategy {
	case SlackStrategy:
		return NewSlackLimiter(&SlackLimiterConfig{Slack: slack})
	case BudgetStrategy:
		return NewBudgetLimiter(&BudgetLimiterConfig{Budgets: budgets})
	default:
		return nil, fmt.Errorf("unsupported limiter strategy: %v", strategy)
	}
}
