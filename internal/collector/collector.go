package collector

import (
	"github.com/energymodels/capacityplanner/internal/constraints"
	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// Collect extracts the result tables of sol over the permitted pairs of s.
func Collect(s *sets.Sets, sol *core.Solution, iteration int) *Snapshot {
	snap := &Snapshot{
		Iteration:        iteration,
		ProductionSeries: make(map[string]*Series),
	}
	if sol == nil {
		snap.Status = core.StatusOther
		return snap
	}
	snap.Status = sol.Status
	snap.Objective = sol.Objective

	for _, p := range s.Pairs() {
		snap.Capacities = append(snap.Capacities, Capacity{
			Tech:     p.Tech,
			Location: p.Location,
			ECap:     sol.Value(constraints.VarCap, p.Tech, p.Location),
			SCap:     sol.Value(constraints.VarStorageCap, p.Tech, p.Location),
			RCap:     sol.Value(constraints.VarResourceCap, p.Tech, p.Location),
			RArea:    sol.Value(constraints.VarResourceArea, p.Tech, p.Location),
		})
		for _, k := range s.CostClasses {
			snap.Costs = append(snap.Costs, Cost{
				Tech:         p.Tech,
				Location:     p.Location,
				Class:        k,
				Total:        sol.Value(constraints.VarCost, p.Tech, p.Location, k),
				Construction: sol.Value(constraints.VarCostCon, p.Tech, p.Location, k),
				Operation:    sol.Value(constraints.VarCostOp, p.Tech, p.Location, k),
			})
		}

		c := s.Carrier(p.Tech)
		series := NewSeries(constraints.VarProd, productionLabels(c, p.Tech, p.Location))
		for _, t := range s.Timesteps {
			series.Add(t, sol.Value(constraints.VarProd, c, p.Tech, p.Location, t))
		}
		snap.ProductionSeries[series.LabelSetKey()] = series
	}
	return snap
}
