package limiter

import (
	"context"
	"fmt"
	"math"
	"sort"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/logging"
)

// BudgetLimiterConfig holds configuration for the BudgetLimiter
type BudgetLimiterConfig struct {
	// Budgets maps cost classes to absolute ceilings.
	Budgets map[string]float64
}

// BudgetLimiter applies fixed ceilings regardless of the optimum.
type BudgetLimiter struct {
	config *BudgetLimiterConfig
}

// NewBudgetLimiter creates a new BudgetLimiter instance.
func NewBudgetLimiter(config *BudgetLimiterConfig) (*BudgetLimiter, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	for k, v := range config.Budgets {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("budget for cost class %q is NaN", k)
		}
	}
	return &BudgetLimiter{config: config}, nil
}

// Limits implements Limiter. optimal may be nil.
func (l *BudgetLimiter) Limits(ctx context.Context, _ map[string]float64) (map[string]float64, error) {
	logger := ctrl.LoggerFrom(ctx)
	classes := make([]string, 0, len(l.config.Budgets))
	for k := range l.config.Budgets {
		classes = append(classes, k)
	}
	sort.Strings(classes)

	out := make(map[string]float64, len(classes))
	for _, k := range classes {
		out[k] = l.config.Budgets[k]
		logger.V(logging.DEBUG).Info("Cost budget", "class", k, "ceiling", out[k])
	}
	return out, nil
}
