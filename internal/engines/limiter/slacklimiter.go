package limiter

import (
	"context"
	"fmt"
	"math"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/logging"
	"github.com/energymodels/capacityplanner/pkg/config"
)

// SlackLimiterConfig holds configuration for the SlackLimiter
type SlackLimiterConfig struct {
	LimiterConfig

	// Slack is the relative cost increase tolerated over the optimum.
	Slack float64
}

// SlackLimiter allows each limited class to exceed its optimal total by a relative slack:
// ceiling = optimal * (1 + slack).
type SlackLimiter struct {
	config *SlackLimiterConfig
}

// NewSlackLimiter creates a new SlackLimiter instance. Classes defaults to monetary.
func NewSlackLimiter(cfg *SlackLimiterConfig) (*SlackLimiter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Slack < 0 || math.IsNaN(cfg.Slack) || math.IsInf(cfg.Slack, 0) {
		return nil, fmt.Errorf("slack must be a non-negative number, got %v", cfg.Slack)
	}
	if len(cfg.Classes) == 0 {
		cfg.Classes = []string{config.DefaultCostClass}
	}
	return &SlackLimiter{config: cfg}, nil
}

// Limits implements Limiter.
func (l *SlackLimiter) Limits(ctx context.Context, optimal map[string]float64) (map[string]float64, error) {
	logger := ctrl.LoggerFrom(ctx)
	out := make(map[string]float64, len(l.config.Classes))
	for _, k := range l.config.Classes {
		c, ok := optimal[k]
		if !ok {
			return nil, fmt.Errorf("no optimal total for cost class %q", k)
		}
		out[k] = c * (1 + l.config.Slack)
		logger.V(logging.DEBUG).Info("Cost ceiling", "class", k, "optimal", c, "slack", l.config.Slack, "ceiling", out[k])
	}
	return out, nil
}
