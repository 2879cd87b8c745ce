package constraints

import (
	"math"

	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// NodeCosts emits cost = cost_con + cost_op and both components per (tech, location, class).
func (b *Builder) NodeCosts() error {
	s := b.sets
	var indices []core.Index
	for _, p := range s.Pairs() {
		for _, k := range s.CostClasses {
			indices = append(indices, core.Index{p.Tech, p.Location, k})
		}
	}
	if err := b.emit(FamCost, indices, b.costRule); err != nil {
		return err
	}
	if err := b.emit(FamCostCon, indices, b.costConRule); err != nil {
		return err
	}
	return b.emit(FamCostOp, indices, b.costOpRule)
}

// unitCost resolves costs.<class>.<name>, falling back to costs.default.<name>.
func (b *Builder) unitCost(p sets.Pair, class, name string) (float64, error) {
	return b.r.FloatDefault(p.Tech+"."+config.CostKey(class, name), p.Location, p.Tech+"."+config.DefaultCostKey(name))
}

// DepreciationRate is the annuity factor i(1+i)^L / ((1+i)^L - 1), or 1/L without interest.
func DepreciationRate(interest, plantLife float64) float64 {
	if interest == 0 {
		return 1 / plantLife
	}
	f := math.Pow(1+interest, plantLife)
	return interest * f / (f - 1)
}

func (b *Builder) depreciation(p sets.Pair, class string) (float64, error) {
	interest, err := b.r.FloatDefault(p.Tech+"."+config.InterestKey(class), p.Location, p.Tech+"."+config.KeyInterestDefault)
	if err != nil {
		return 0, err
	}
	life, err := b.float(p, config.KeyPlantLife)
	if err != nil {
		return 0, err
	}
	if life <= 0 {
		return 0, &config.ConfigurationError{Key: p.Tech + "." + config.KeyPlantLife, Technology: p.Tech,
			Location: p.Location, Reason: "plant life must be positive"}
	}
	return DepreciationRate(interest, life), nil
}

func (b *Builder) costRule(idx core.Index) (core.Constraint, bool, error) {
	y, x, k := idx[0], idx[1], idx[2]
	return core.Eq(
		core.Expr(core.T(b.v(VarCost, y, x, k), 1)),
		core.Expr(core.T(b.v(VarCostCon, y, x, k), 1), core.T(b.v(VarCostOp, y, x, k), 1)),
	), true, nil
}

// costConRule: cost_con = dep * (sum(duration)/8760) * (cs_cap*s_cap + cr_cap*r_cap
// + cr_area*r_area + ce_cap*e_cap). Storage terms apply to production/consumption techs,
// resource terms to techs with a defined resource.
func (b *Builder) costConRule(idx core.Index) (core.Constraint, bool, error) {
	s := b.sets
	p, k := pairOf(idx), idx[2]
	dep, err := b.depreciation(p, k)
	if err != nil {
		return core.Constraint{}, false, err
	}
	factor := dep * s.TotalDuration() / HoursPerYear

	capital := core.LinExpr{}
	add := func(name, family string) error {
		unit, err := b.unitCost(p, k, name)
		if err != nil {
			return err
		}
		capital.Add(b.v(family, p.Tech, p.Location), unit*factor)
		return nil
	}
	if s.StorageCapable.Has(p.Tech) {
		if err := add(config.CostSCap, VarStorageCap); err != nil {
			return core.Constraint{}, false, err
		}
	}
	if s.DefResourceArea.Has(p.Tech) {
		if err := add(config.CostRCap, VarResourceCap); err != nil {
			return core.Constraint{}, false, err
		}
		if err := add(config.CostRArea, VarResourceArea); err != nil {
			return core.Constraint{}, false, err
		}
	}
	if err := add(config.CostECap, VarCap); err != nil {
		return core.Constraint{}, false, err
	}
	return core.Eq(core.Expr(core.T(b.v(VarCostCon, p.Tech, p.Location, k), 1)), capital), true, nil
}

// costOpRule: cost_op = om_frac*cost_con + om_fixed*e_cap + om_var*sum(es_prod)
// + om_fuel*sum(rs).
func (b *Builder) costOpRule(idx core.Index) (core.Constraint, bool, error) {
	s := b.sets
	p, k := pairOf(idx), idx[2]
	units := make(map[string]float64, 4)
	for _, name := range []string{config.CostOMFrac, config.CostOMFixed, config.CostOMVar, config.CostOMFuel} {
		u, err := b.unitCost(p, k, name)
		if err != nil {
			return core.Constraint{}, false, err
		}
		units[name] = u
	}

	op := core.Expr(
		core.T(b.v(VarCostCon, p.Tech, p.Location, k), units[config.CostOMFrac]),
		core.T(b.v(VarCap, p.Tech, p.Location), units[config.CostOMFixed]),
	)
	carrier := s.Carrier(p.Tech)
	for _, t := range s.Timesteps {
		op.Add(b.v(VarProd, carrier, p.Tech, p.Location, t), units[config.CostOMVar])
		if s.StorageCapable.Has(p.Tech) {
			op.Add(b.v(VarResource, p.Tech, p.Location, t), units[config.CostOMFuel])
		}
	}
	return core.Eq(core.Expr(core.T(b.v(VarCostOp, p.Tech, p.Location, k), 1)), op), true, nil
}
