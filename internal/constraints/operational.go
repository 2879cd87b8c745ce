package constraints

import (
	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// NodeOperational bounds per-timestep flows by the installed capacities.
func (b *Builder) NodeOperational() error {
	s := b.sets
	defR := pairTimeIndices(s.PairsIn(s.DefResourceArea), s.Timesteps)
	all := pairTimeIndices(s.Pairs(), s.Timesteps)
	steps := []struct {
		family  string
		indices []core.Index
		rule    Rule
	}{
		{FamResourceMaxUpper, defR, b.resourceMaxUpperRule},
		{FamResourceMaxLower, defR, b.resourceMaxLowerRule},
		{FamStorageMax, pairTimeIndices(s.PairsIn(s.StorageCapable), s.Timesteps), b.storageMaxRule},
	}
	for _, st := range steps {
		if err := b.emit(st.family, st.indices, st.rule); err != nil {
			return err
		}
	}

	carrierIdx := make([]core.Index, 0, len(all)*len(s.Carriers))
	for _, c := range s.Carriers {
		for _, idx := range all {
			carrierIdx = append(carrierIdx, core.Index{c, idx[0], idx[1], idx[2]})
		}
	}
	if err := b.emit(FamProdMax, carrierIdx, b.prodMaxRule); err != nil {
		return err
	}
	if err := b.emit(FamProdMin, carrierIdx, b.prodMinRule); err != nil {
		return err
	}
	return b.emit(FamConMax, carrierIdx, b.conMaxRule)
}

// resourceRate is duration(t) / r_eff, or zero when r_eff is zero.
func (b *Builder) resourceRate(p sets.Pair, t string) (float64, error) {
	eff, err := b.float(p, config.KeyREff)
	if err != nil || eff == 0 {
		return 0, err
	}
	return b.sets.Duration(t) / eff, nil
}

// rs <= duration * r_cap / r_eff
func (b *Builder) resourceMaxUpperRule(idx core.Index) (core.Constraint, bool, error) {
	p, t := pairOf(idx), idx[2]
	rate, err := b.resourceRate(p, t)
	if err != nil {
		return core.Constraint{}, false, err
	}
	rs := core.Expr(core.T(b.v(VarResource, p.Tech, p.Location, t), 1))
	return core.Le(rs, core.Expr(core.T(b.v(VarResourceCap, p.Tech, p.Location), rate))), true, nil
}

// rs >= -duration * r_cap / r_eff
func (b *Builder) resourceMaxLowerRule(idx core.Index) (core.Constraint, bool, error) {
	p, t := pairOf(idx), idx[2]
	rate, err := b.resourceRate(p, t)
	if err != nil {
		return core.Constraint{}, false, err
	}
	rs := core.Expr(core.T(b.v(VarResource, p.Tech, p.Location, t), 1))
	return core.Ge(rs, core.Expr(core.T(b.v(VarResourceCap, p.Tech, p.Location), -rate))), true, nil
}

// s <= s_cap
func (b *Builder) storageMaxRule(idx core.Index) (core.Constraint, bool, error) {
	p, t := pairOf(idx), idx[2]
	return core.Le(
		core.Expr(core.T(b.v(VarStorage, p.Tech, p.Location, t), 1)),
		core.Expr(core.T(b.v(VarStorageCap, p.Tech, p.Location), 1)),
	), true, nil
}

// es_prod <= duration * e_cap. A production/consumption tech with zero efficiency
// at t has es_prod pinned to zero, since its balance no longer carries es_prod.
func (b *Builder) prodMaxRule(idx core.Index) (core.Constraint, bool, error) {
	c, y, x, t := idx[0], idx[1], idx[2], idx[3]
	if !b.sets.ProducesOn(c, y) {
		return core.Constraint{}, false, nil
	}
	p := sets.Pair{Tech: y, Location: x}
	if cls := b.sets.Class(p); cls != sets.ClassConversion && cls != sets.ClassTransmission {
		eff, err := b.sets.Efficiency(p, t)
		if err != nil {
			return core.Constraint{}, false, err
		}
		if eff == 0 {
			return core.Eq(core.Expr(core.T(b.v(VarProd, c, y, x, t), 1)), core.Const(0)), true, nil
		}
	}
	return core.Le(
		core.Expr(core.T(b.v(VarProd, c, y, x, t), 1)),
		core.Expr(core.T(b.v(VarCap, y, x), b.sets.Duration(t))),
	), true, nil
}

// es_prod >= duration * e_cap * e_cap_min_use
func (b *Builder) prodMinRule(idx core.Index) (core.Constraint, bool, error) {
	c, y, x, t := idx[0], idx[1], idx[2], idx[3]
	if !b.sets.ProducesOn(c, y) {
		return core.Constraint{}, false, nil
	}
	minUse, err := b.float(sets.Pair{Tech: y, Location: x}, config.KeyECapMinUse)
	if err != nil || minUse <= 0 {
		return core.Constraint{}, false, err
	}
	return core.Ge(
		core.Expr(core.T(b.v(VarProd, c, y, x, t), 1)),
		core.Expr(core.T(b.v(VarCap, y, x), b.sets.Duration(t)*minUse)),
	), true, nil
}

// es_con >= -duration * e_cap on the tech's own carrier. Source-carrier consumption
// of a conversion tech is bound through its conversion balance.
func (b *Builder) conMaxRule(idx core.Index) (core.Constraint, bool, error) {
	c, y, x, t := idx[0], idx[1], idx[2], idx[3]
	if !b.sets.ConsumesOn(c, y) || b.sets.Carrier(y) != c {
		return core.Constraint{}, false, nil
	}
	return core.Ge(
		core.Expr(core.T(b.v(VarCon, c, y, x, t), 1)),
		core.Expr(core.T(b.v(VarCap, y, x), -b.sets.Duration(t))),
	), true, nil
}
