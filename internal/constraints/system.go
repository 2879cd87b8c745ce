package constraints

import (
	"fmt"

	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// SystemBalance emits, per carrier, balance-level location and timestep, the sum of all
// production and consumption in the location's family. Strict carriers balance exactly;
// others may run a surplus.
func (b *Builder) SystemBalance() error {
	s := b.sets
	var indices []core.Index
	for _, c := range s.Carriers {
		for _, x := range s.Parents {
			for _, t := range s.Timesteps {
				indices = append(indices, core.Index{c, x, t})
			}
		}
	}
	return b.emit(FamSystemBalance, indices, b.systemBalanceRule)
}

func (b *Builder) systemBalanceRule(idx core.Index) (core.Constraint, bool, error) {
	s, m := b.sets, b.model
	c, parent, t := idx[0], idx[1], idx[2]
	sum := core.LinExpr{}
	for _, x := range s.Family(parent) {
		for _, y := range s.Techs {
			if v, ok := m.Var(VarProd, c, y, x, t); ok {
				sum.Add(v, 1)
			}
			if v, ok := m.Var(VarCon, c, y, x, t); ok {
				sum.Add(v, 1)
			}
		}
	}
	if len(sum.Terms) == 0 {
		return core.Constraint{}, false, nil
	}
	if s.StrictCarriers.Has(c) {
		return core.Eq(sum, core.Const(0)), true, nil
	}
	return core.Ge(sum, core.Const(0)), true, nil
}

// classCostSum is sum over valid pairs of weight(y) * cost[y,x,class].
func (b *Builder) classCostSum(class string, weighted bool) (core.LinExpr, error) {
	s := b.sets
	known := false
	for _, k := range s.CostClasses {
		known = known || k == class
	}
	if !known {
		return core.LinExpr{}, &config.ConfigurationError{Key: "cost_classes", Reason: fmt.Sprintf("cost class %q is not declared", class)}
	}
	sum := core.LinExpr{}
	for _, p := range s.Pairs() {
		w := 1.0
		if weighted {
			var err error
			if w, err = b.r.Float(p.Tech+"."+config.KeyWeight, ""); err != nil {
				return core.LinExpr{}, err
			}
		}
		sum.Add(b.v(VarCost, p.Tech, p.Location, class), w)
	}
	return sum, nil
}

// Objective sets min sum_y weight(y) * sum_x cost[y,x,class].
func (b *Builder) Objective(class string) error {
	sum, err := b.classCostSum(class, true)
	if err != nil {
		return err
	}
	b.model.SetObjective(core.Minimize, sum)
	return nil
}

// CostLimit emits sum_{y,x} cost[y,x,class] <= limit.
func (b *Builder) CostLimit(class string, limit float64) error {
	sum, err := b.classCostSum(class, false)
	if err != nil {
		return err
	}
	b.model.Add(FamCostLimit, core.Index{class}, core.Le(sum, core.Const(limit)))
	return nil
}
