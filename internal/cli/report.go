package cli

import (
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/energymodels/capacityplanner/api/v1alpha1"
	"github.com/energymodels/capacityplanner/internal/collector"
	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/optimizer"
	"github.com/energymodels/capacityplanner/internal/spores"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/solver"
)

func planReport(r optimizer.ScenarioResult, now time.Time) *v1alpha1.PlanReport {
	p := r.Problem
	objective := p.Options.ObjectiveClass
	if objective == "" {
		objective = config.DefaultCostClass
	}

	rep := v1alpha1.NewPlanReport(r.Name, now)
	rep.Spec = v1alpha1.PlanSpec{
		Mode:           string(p.Sets.Mode),
		ObjectiveClass: objective,
		CostLimits:     p.Options.CostLimits,
		Timesteps:      len(p.Sets.Timesteps),
		Variables:      p.Model.NumVars(),
		Constraints:    p.Model.NumConstraints(),
	}

	snap := collector.Collect(p.Sets, r.Solution, optimizer.NoIteration)
	rep.Status = v1alpha1.PlanStatus{
		Termination: snap.Status.String(),
		Objective:   snap.Objective,
		Capacities:  capacityStatuses(snap),
		Costs:       costStatuses(snap),
		Production:  productionStatuses(snap, p.Sets.Carriers),
	}
	meta.SetStatusCondition(&rep.Status.Conditions, solvedCondition(nil, now))
	return rep
}

func sporesReport(result *spores.Result, opts spores.Options, runErr error, now time.Time) *v1alpha1.SporesReport {
	rep := v1alpha1.NewSporesReport(result.Model, result.RunID.String(), now)
	rep.Spec = v1alpha1.SporesSpec{
		Iterations:      opts.Iterations,
		Slack:           opts.Slack,
		ObjectiveClass:  opts.ObjectiveClass,
		ScoreClass:      opts.ScoreClass,
		SkipCostOptimal: opts.SkipCostOptimal,
	}
	rep.Status.OptimalCost = result.OptimalCost
	rep.Status.Limits = result.Limits
	for _, it := range result.Iterations {
		rep.Status.Iterations = append(rep.Status.Iterations, v1alpha1.IterationStatus{
			Index:         it.Index,
			Termination:   it.Snapshot.Status.String(),
			Objective:     it.Snapshot.Objective,
			ObjectiveCost: it.Snapshot.ClassTotal(opts.ObjectiveClass),
			ScoreTotal:    it.Scores.Total(),
			Scores:        scoreStatuses(it.Scores),
			Capacities:    capacityStatuses(it.Snapshot),
		})
	}
	meta.SetStatusCondition(&rep.Status.Conditions, solvedCondition(runErr, now))
	return rep
}

func capacityStatuses(snap *collector.Snapshot) []v1alpha1.CapacityStatus {
	out := make([]v1alpha1.CapacityStatus, 0, len(snap.Capacities))
	for _, c := range snap.Capacities {
		out = append(out, v1alpha1.CapacityStatus{
			Technology: c.Tech,
			Location:   c.Location,
			ECap:       c.ECap,
			SCap:       c.SCap,
			RCap:       c.RCap,
			RArea:      c.RArea,
		})
	}
	return out
}

func costStatuses(snap *collector.Snapshot) []v1alpha1.CostStatus {
	out := make([]v1alpha1.CostStatus, 0, len(snap.Costs))
	for _, c := range snap.Costs {
		out = append(out, v1alpha1.CostStatus{
			Technology:   c.Tech,
			Location:     c.Location,
			Class:        c.Class,
			Total:        c.Total,
			Construction: c.Construction,
			Operation:    c.Operation,
		})
	}
	return out
}

func productionStatuses(r collector.Reader, carriers []string) []v1alpha1.ProductionStatus {
	out := make([]v1alpha1.ProductionStatus, 0, len(carriers))
	for _, c := range carriers {
		by := map[string]string{collector.LabelCarrier: c}
		out = append(out, v1alpha1.ProductionStatus{
			Carrier: c,
			Total:   r.GetAggregated(constraints.VarProd, collector.AggSum, by),
			Peak:    r.GetAggregated(constraints.VarProd, collector.AggMax, by),
		})
	}
	return out
}

func scoreStatuses(s spores.Scores) []v1alpha1.ScoreStatus {
	if s.Len() == 0 {
		return nil
	}
	out := make([]v1alpha1.ScoreStatus, 0, s.Len())
	for _, p := range s.Pairs() {
		out = append(out, v1alpha1.ScoreStatus{Technology: p.Tech, Location: p.Location, Score: s.Get(p)})
	}
	return out
}

func solvedCondition(err error, now time.Time) metav1.Condition {
	c := metav1.Condition{
		Type:               v1alpha1.TypeSolved,
		Status:             metav1.ConditionFalse,
		LastTransitionTime: metav1.NewTime(now),
	}
	var failure *solver.SolveFailure
	switch {
	case err == nil:
		c.Status = metav1.ConditionTrue
		c.Reason = v1alpha1.ReasonOptimal
		return c
	case errors.As(err, &failure):
		c.Reason = v1alpha1.ReasonSolveFailed
	case errors.Is(err, config.ErrConfiguration):
		c.Reason = v1alpha1.ReasonInvalidConfiguration
	default:
		c.Reason = v1alpha1.ReasonBackendError
	}
	c.Message = err.Error()
	return c
}
