// Package metrics exposes prometheus collectors for model builds, solves and SPORES
// iterations.
//
// All methods are safe on a nil *Metrics, so callers that do not export metrics can
// pass nil through.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "capacityplanner"

	subsystemModel  = "model"
	subsystemSolver = "solver"
	subsystemSpores = "spores"
)

// Metrics holds the planner collectors.
type Metrics struct {
	// ModelVariables is the variable count of the last built model.
	// Labels: model
	ModelVariables *prometheus.GaugeVec

	// ModelConstraints is the constraint count of the last built model.
	// Labels: model
	ModelConstraints *prometheus.GaugeVec

	// SolveDuration measures solver wall time.
	// Labels: status (optimal, infeasible, unbounded, other, error)
	SolveDuration *prometheus.HistogramVec

	// SolvesTotal counts solves by status.
	// Labels: status
	SolvesTotal *prometheus.CounterVec

	// SporesIterationsTotal counts completed SPORES iterations.
	// Labels: model
	SporesIterationsTotal *prometheus.CounterVec

	// SporesScoreTotal is the summed diversity score after the last iteration.
	// Labels: model
	SporesScoreTotal *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ModelVariables: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemModel,
			Name:      "variables",
			Help:      "Number of declared variables in the last built model",
		}, []string{"model"}),
		ModelConstraints: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemModel,
			Name:      "constraints",
			Help:      "Number of constraints in the last built model",
		}, []string{"model"}),
		SolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemSolver,
			Name:      "duration_seconds",
			Help:      "Solver wall time in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"status"}),
		SolvesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSolver,
			Name:      "solves_total",
			Help:      "Total solves by termination status",
		}, []string{"status"}),
		SporesIterationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSpores,
			Name:      "iterations_total",
			Help:      "Total completed SPORES iterations",
		}, []string{"model"}),
		SporesScoreTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSpores,
			Name:      "score_total",
			Help:      "Summed diversity score after the last SPORES iteration",
		}, []string{"model"}),
	}
}

// RecordBuild records the size of a built model.
func (m *Metrics) RecordBuild(model string, variables, constraints int) {
	if m == nil {
		return
	}
	m.ModelVariables.WithLabelValues(model).Set(float64(variables))
	m.ModelConstraints.WithLabelValues(model).Set(float64(constraints))
}

// RecordSolve records one solve. status is the termination status, or "error" when
// the backend failed.
func (m *Metrics) RecordSolve(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SolveDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.SolvesTotal.WithLabelValues(status).Inc()
}

// RecordIteration records a completed SPORES iteration and the score total it produced.
func (m *Metrics) RecordIteration(model string, scoreTotal float64) {
	if m == nil {
		return
	}
	m.SporesIterationsTotal.WithLabelValues(model).Inc()
	m.SporesScoreTotal.WithLabelValues(model).Set(scoreTotal)
}
