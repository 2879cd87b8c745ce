package constraints

import (
	"math"

	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// NodeCapacity emits the storage, resource, area and energy capacity limits.
func (b *Builder) NodeCapacity() error {
	s := b.sets
	steps := []struct {
		family  string
		indices []core.Index
		rule    Rule
	}{
		{FamStorageCap, pairIndices(s.PairsIn(s.StorageCapable)), b.storageCapRule},
		{FamResourceCap, pairIndices(s.PairsIn(s.DefResourceArea)), b.resourceCapRule},
		{FamResourceArea, pairIndices(s.PairsIn(s.DefResourceArea)), b.resourceAreaRule},
		{FamCap, pairIndices(s.AllPairs()), b.capRule},
		{FamCapMin, pairIndices(s.Pairs()), b.capMinRule},
	}
	for _, st := range steps {
		if err := b.emit(st.family, st.indices, st.rule); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) storageCapRule(idx core.Index) (core.Constraint, bool, error) {
	p := pairOf(idx)
	ceiling, err := b.sets.StorageCapMax(p)
	if err != nil {
		return core.Constraint{}, false, err
	}
	force, err := b.flag(p, config.KeySCapMaxForce)
	if err != nil {
		return core.Constraint{}, false, err
	}
	c, ok := b.limit(b.v(VarStorageCap, p.Tech, p.Location), ceiling, force)
	return c, ok, nil
}

func (b *Builder) resourceCapRule(idx core.Index) (core.Constraint, bool, error) {
	p := pairOf(idx)
	ceiling, err := b.float(p, config.KeyRCapMax)
	if err != nil {
		return core.Constraint{}, false, err
	}
	force, err := b.flag(p, config.KeyRCapMaxForce)
	if err != nil {
		return core.Constraint{}, false, err
	}
	c, ok := b.limit(b.v(VarResourceCap, p.Tech, p.Location), ceiling, force)
	return c, ok, nil
}

// resourceAreaRule ties r_area to e_cap when r_area_per_e_cap is set, fixes it to one
// when r_area_max is false, and otherwise applies r_area_max.
func (b *Builder) resourceAreaRule(idx core.Index) (core.Constraint, bool, error) {
	p := pairOf(idx)
	area := b.v(VarResourceArea, p.Tech, p.Location)

	perCap, err := b.float(p, config.KeyRAreaPerECap)
	if err != nil {
		return core.Constraint{}, false, err
	}
	if perCap > 0 {
		ref, err := b.sets.EfficiencyRef(p)
		if err != nil {
			return core.Constraint{}, false, err
		}
		coef := 0.0
		if ref != 0 {
			coef = perCap / ref
		}
		capVar := b.v(VarCap, p.Tech, p.Location)
		return core.Eq(core.Expr(core.T(area, 1)), core.Expr(core.T(capVar, coef))), true, nil
	}

	disabled, err := b.r.IsDisabled(p.Tech+"."+config.KeyRAreaMax, p.Location)
	if err != nil {
		return core.Constraint{}, false, err
	}
	if disabled {
		return core.Eq(core.Expr(core.T(area, 1)), core.Const(1)), true, nil
	}
	ceiling, err := b.float(p, config.KeyRAreaMax)
	if err != nil {
		return core.Constraint{}, false, err
	}
	force, err := b.flag(p, config.KeyRAreaMaxForce)
	if err != nil {
		return core.Constraint{}, false, err
	}
	c, ok := b.limit(area, ceiling, force)
	return c, ok, nil
}

// capRule pins e_cap to zero where the tech is not permitted and applies
// e_cap_max * e_cap_max_scale elsewhere.
func (b *Builder) capRule(idx core.Index) (core.Constraint, bool, error) {
	p := pairOf(idx)
	capVar := b.v(VarCap, p.Tech, p.Location)
	if !b.sets.Valid(p) {
		return core.Eq(core.Expr(core.T(capVar, 1)), core.Const(0)), true, nil
	}
	ceiling, err := b.float(p, config.KeyECapMax)
	if err != nil {
		return core.Constraint{}, false, err
	}
	if math.IsInf(ceiling, 1) {
		return core.Constraint{}, false, nil
	}
	scale, err := b.float(p, config.KeyECapMaxScale)
	if err != nil {
		return core.Constraint{}, false, err
	}
	force, err := b.flag(p, config.KeyECapMaxForce)
	if err != nil {
		return core.Constraint{}, false, err
	}
	c, ok := b.limit(capVar, ceiling*scale, force)
	return c, ok, nil
}

func (b *Builder) capMinRule(idx core.Index) (core.Constraint, bool, error) {
	p := pairOf(idx)
	floor, err := b.float(p, config.KeyECapMin)
	if err != nil {
		return core.Constraint{}, false, err
	}
	if floor <= 0 {
		return core.Constraint{}, false, nil
	}
	return core.Ge(core.Expr(core.T(b.v(VarCap, p.Tech, p.Location), 1)), core.Const(floor)), true, nil
}
