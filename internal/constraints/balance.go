package constraints

import (
	"math"

	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// NodeEnergyBalance emits resource availability and the per-node energy balances.
func (b *Builder) NodeEnergyBalance() error {
	s := b.sets
	if err := b.emit(FamResource, pairTimeIndices(s.PairsIn(s.DefResourceArea), s.Timesteps), b.resourceRule); err != nil {
		return err
	}

	var pc, conv, trans []sets.Pair
	for _, p := range s.Pairs() {
		switch s.Class(p) {
		case sets.ClassConversion:
			conv = append(conv, p)
		case sets.ClassTransmission:
			trans = append(trans, p)
		default:
			pc = append(pc, p)
		}
	}
	if err := b.emit(FamBalancePC, pairTimeIndices(pc, s.Timesteps), b.balancePCRule); err != nil {
		return err
	}
	if err := b.emit(FamBalanceConversion, pairTimeIndices(conv, s.Timesteps), b.balanceConversionRule); err != nil {
		return err
	}
	return b.emit(FamBalanceTransmission, pairTimeIndices(trans, s.Timesteps), b.balanceTransmissionRule)
}

// resourceRule relates rs to the available resource r * r_scale * r_eff * r_area.
// A non-negative signal caps rs, a negative one floors it, force_r pins it.
func (b *Builder) resourceRule(idx core.Index) (core.Constraint, bool, error) {
	p, t := pairOf(idx), idx[2]
	raw, err := b.sets.Resource(p, t)
	if err != nil {
		return core.Constraint{}, false, err
	}
	if math.IsInf(raw, 0) {
		return core.Constraint{}, false, nil
	}
	scale, err := b.float(p, config.KeyRScale)
	if err != nil {
		return core.Constraint{}, false, err
	}
	eff, err := b.float(p, config.KeyREff)
	if err != nil {
		return core.Constraint{}, false, err
	}
	force, err := b.flag(p, config.KeyForceR)
	if err != nil {
		return core.Constraint{}, false, err
	}

	rs := core.Expr(core.T(b.v(VarResource, p.Tech, p.Location, t), 1))
	avail := core.Expr(core.T(b.v(VarResourceArea, p.Tech, p.Location), raw*scale*eff))
	switch {
	case force:
		return core.Eq(rs, avail), true, nil
	case raw >= 0:
		return core.Le(rs, avail), true, nil
	default:
		return core.Ge(rs, avail), true, nil
	}
}

// balancePCRule is the balance of a production/consumption technology:
//
//	s(t) = carry + rs(t) - es_prod(t)/eff(t) - es_con(t)*eff(t)
//
// where carry is the decayed storage level of the predecessor step. Without storage
// the balance is instantaneous: 0 = rs - es_prod/eff - es_con*eff.
func (b *Builder) balancePCRule(idx core.Index) (core.Constraint, bool, error) {
	s := b.sets
	p, t := pairOf(idx), idx[2]
	eff, err := s.Efficiency(p, t)
	if err != nil {
		return core.Constraint{}, false, err
	}

	flows := core.Expr(core.T(b.v(VarResource, p.Tech, p.Location, t), 1))
	for _, c := range s.Carriers {
		if s.ProducesOn(c, p.Tech) && eff != 0 {
			flows.Add(b.v(VarProd, c, p.Tech, p.Location, t), -1/eff)
		}
		if s.ConsumesOn(c, p.Tech) {
			flows.Add(b.v(VarCon, c, p.Tech, p.Location, t), -eff)
		}
	}

	if s.Class(p) != sets.ClassStorage {
		return core.Eq(core.Const(0), flows), true, nil
	}

	carry, err := b.storageCarry(p, t)
	if err != nil {
		return core.Constraint{}, false, err
	}
	rhs := carry
	rhs.AddExpr(flows, 1)
	return core.Eq(core.Expr(core.T(b.v(VarStorage, p.Tech, p.Location, t), 1)), rhs), true, nil
}

// storageCarry is the storage level carried into t, decayed by (1 - s_loss)^duration(t).
func (b *Builder) storageCarry(p sets.Pair, t string) (core.LinExpr, error) {
	s := b.sets
	loss, err := b.float(p, config.KeySLoss)
	if err != nil {
		return core.LinExpr{}, err
	}
	decay := math.Pow(1-loss, s.Duration(t))

	prev := s.Previous(t)
	if prev.Kind != sets.StepInitial {
		return core.Expr(core.T(b.v(VarStorage, p.Tech, p.Location, prev.Step), decay)), nil
	}
	if s.Mode == config.ModeOperate {
		if init, ok := s.StorageInit(p); ok {
			return core.Const(init * decay), nil
		}
	}
	frac, err := b.float(p, config.KeySInitFrac)
	if err != nil {
		return core.LinExpr{}, err
	}
	return core.Expr(core.T(b.v(VarStorageCap, p.Tech, p.Location), frac*decay)), nil
}

// balanceConversionRule: es_prod[carrier] = -es_con[source] * eff.
func (b *Builder) balanceConversionRule(idx core.Index) (core.Constraint, bool, error) {
	s := b.sets
	p, t := pairOf(idx), idx[2]
	eff, err := s.Efficiency(p, t)
	if err != nil {
		return core.Constraint{}, false, err
	}
	src, _ := s.SourceCarrier(p.Tech)
	prod := b.v(VarProd, s.Carrier(p.Tech), p.Tech, p.Location, t)
	con := b.v(VarCon, src, p.Tech, p.Location, t)
	return core.Eq(core.Expr(core.T(prod, 1)), core.Expr(core.T(con, -eff))), true, nil
}

// balanceTransmissionRule: what arrives here is what left the remote end times eff.
func (b *Builder) balanceTransmissionRule(idx core.Index) (core.Constraint, bool, error) {
	s := b.sets
	p, t := pairOf(idx), idx[2]
	remote, ok := s.Remote(p)
	if !ok || !s.Valid(remote) {
		return core.Constraint{}, false, nil
	}
	eff, err := s.Efficiency(p, t)
	if err != nil {
		return core.Constraint{}, false, err
	}
	c := s.Carrier(p.Tech)
	prod := b.v(VarProd, c, p.Tech, p.Location, t)
	con := b.v(VarCon, c, remote.Tech, remote.Location, t)
	return core.Eq(core.Expr(core.T(prod, 1)), core.Expr(core.T(con, -eff))), true, nil
}
