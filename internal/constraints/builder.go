// Package constraints generates the linear program of an energy system model: node
// energy balances, capacity limits, operational limits, transmission coupling, cost
// accounting, the system-wide carrier balance and the objective.
//
// Each generator walks an index set and evaluates a Rule per index tuple. A rule
// either returns a constraint or reports that no constraint exists for that tuple.
package constraints

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/logging"
	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
	"github.com/energymodels/capacityplanner/pkg/core"
)

// Variable families.
const (
	VarStorage      = "s"
	VarResource     = "rs"
	VarResourceArea = "r_area"
	VarProd         = "es_prod"
	VarCon          = "es_con"
	VarStorageCap   = "s_cap"
	VarResourceCap  = "r_cap"
	VarCap          = "e_cap"
	VarCost         = "cost"
	VarCostCon      = "cost_con"
	VarCostOp       = "cost_op"
)

// Constraint families.
const (
	FamResource             = "c_rs"
	FamBalancePC            = "c_s_balance_pc"
	FamBalanceConversion    = "c_s_balance_conversion"
	FamBalanceTransmission  = "c_s_balance_transmission"
	FamStorageCap           = "c_s_cap"
	FamResourceCap          = "c_r_cap"
	FamResourceArea         = "c_r_area"
	FamCap                  = "c_e_cap"
	FamCapMin               = "c_e_cap_min"
	FamResourceMaxUpper     = "c_rs_max_upper"
	FamResourceMaxLower     = "c_rs_max_lower"
	FamProdMax              = "c_es_prod_max"
	FamProdMin              = "c_es_prod_min"
	FamConMax               = "c_es_con_max"
	FamStorageMax           = "c_s_max"
	FamTransmissionCapacity = "c_transmission_capacity"
	FamCost                 = "c_cost"
	FamCostCon              = "c_cost_con"
	FamCostOp               = "c_cost_op"
	FamSystemBalance        = "c_system_balance"
	FamCostLimit            = "c_cost_limit"
)

// HoursPerYear scales construction costs to the modelled period.
const HoursPerYear = 8760.0

// Rule evaluates one index tuple. ok is false when the tuple has no constraint.
type Rule func(idx core.Index) (c core.Constraint, ok bool, err error)

// Options selects the objective and optional cost ceilings.
type Options struct {
	// ObjectiveClass is the cost class minimized. Defaults to monetary.
	ObjectiveClass string

	// CostLimits bounds the summed cost of a class: sum(cost[y,x,k]) <= limit.
	CostLimits map[string]float64
}

// Builder accumulates a model from index sets.
type Builder struct {
	model *core.Model
	sets  *sets.Sets
	r     *config.Resolver
	log   logr.Logger
}

// NewBuilder creates a Builder over s.
func NewBuilder(ctx context.Context, s *sets.Sets) (*Builder, error) {
	if s == nil {
		return nil, fmt.Errorf("sets cannot be nil")
	}
	return &Builder{
		model: core.NewModel(),
		sets:  s,
		r:     s.Resolver(),
		log:   ctrl.LoggerFrom(ctx),
	}, nil
}

// Model returns the model built so far.
func (b *Builder) Model() *core.Model {
	return b.model
}

// Build declares all variables and runs every generator in order.
func Build(ctx context.Context, s *sets.Sets, opts Options) (*core.Model, error) {
	b, err := NewBuilder(ctx, s)
	if err != nil {
		return nil, err
	}
	b.DeclareVariables()

	generators := []struct {
		name string
		fn   func() error
	}{
		{"node energy balance", b.NodeEnergyBalance},
		{"node capacity", b.NodeCapacity},
		{"node operational", b.NodeOperational},
		{"transmission", b.Transmission},
		{"node costs", b.NodeCosts},
		{"system balance", b.SystemBalance},
	}
	for _, g := range generators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := b.model.NumConstraints()
		if err := g.fn(); err != nil {
			return nil, fmt.Errorf("failed to generate %s constraints: %w", g.name, err)
		}
		b.log.V(logging.TRACE).Info("Generated constraints",
			"generator", g.name,
			"count", b.model.NumConstraints()-before)
	}

	classes := make([]string, 0, len(opts.CostLimits))
	for k := range opts.CostLimits {
		classes = append(classes, k)
	}
	sort.Strings(classes)
	for _, k := range classes {
		if err := b.CostLimit(k, opts.CostLimits[k]); err != nil {
			return nil, err
		}
	}

	class := opts.ObjectiveClass
	if class == "" {
		class = config.DefaultCostClass
	}
	if err := b.Objective(class); err != nil {
		return nil, err
	}

	b.log.V(logging.DEBUG).Info("Built model",
		"variables", b.model.NumVars(),
		"constraints", b.model.NumConstraints(),
		"objectiveClass", class)
	return b.model, nil
}

// DeclareVariables declares every variable family over its index set.
func (b *Builder) DeclareVariables() {
	s, m := b.sets, b.model
	for _, p := range s.PairsIn(s.StorageCapable) {
		m.AddVar(VarStorageCap, core.NonNegativeReals, p.Tech, p.Location)
		for _, t := range s.Timesteps {
			m.AddVar(VarStorage, core.NonNegativeReals, p.Tech, p.Location, t)
			m.AddVar(VarResource, core.Reals, p.Tech, p.Location, t)
		}
	}
	for _, p := range s.PairsIn(s.DefResourceArea) {
		m.AddVar(VarResourceArea, core.NonNegativeReals, p.Tech, p.Location)
		m.AddVar(VarResourceCap, core.NonNegativeReals, p.Tech, p.Location)
	}
	for _, p := range s.AllPairs() {
		m.AddVar(VarCap, core.NonNegativeReals, p.Tech, p.Location)
	}
	for _, p := range s.Pairs() {
		for _, c := range s.Carriers {
			for _, t := range s.Timesteps {
				if s.ProducesOn(c, p.Tech) {
					m.AddVar(VarProd, core.NonNegativeReals, c, p.Tech, p.Location, t)
				}
				if s.ConsumesOn(c, p.Tech) {
					m.AddVar(VarCon, core.NonPositiveReals, c, p.Tech, p.Location, t)
				}
			}
		}
		for _, k := range s.CostClasses {
			m.AddVar(VarCost, core.NonNegativeReals, p.Tech, p.Location, k)
			m.AddVar(VarCostCon, core.NonNegativeReals, p.Tech, p.Location, k)
			m.AddVar(VarCostOp, core.NonNegativeReals, p.Tech, p.Location, k)
		}
	}
}

// emit evaluates rule over indices and records every constraint it returns.
func (b *Builder) emit(family string, indices []core.Index, rule Rule) error {
	for _, idx := range indices {
		c, ok, err := rule(idx)
		if err != nil {
			return err
		}
		b.model.Add(family, idx, c, ok)
	}
	return nil
}

func (b *Builder) v(family string, idx ...string) core.VarID {
	return b.model.MustVar(family, idx...)
}

// pairIndices builds (tech, location) index tuples.
func pairIndices(pairs []sets.Pair) []core.Index {
	out := make([]core.Index, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, core.Index{p.Tech, p.Location})
	}
	return out
}

// pairTimeIndices builds (tech, location, timestep) index tuples.
func pairTimeIndices(pairs []sets.Pair, steps []string) []core.Index {
	out := make([]core.Index, 0, len(pairs)*len(steps))
	for _, p := range pairs {
		for _, t := range steps {
			out = append(out, core.Index{p.Tech, p.Location, t})
		}
	}
	return out
}

func pairOf(idx core.Index) sets.Pair {
	return sets.Pair{Tech: idx[0], Location: idx[1]}
}

func (b *Builder) float(p sets.Pair, key string) (float64, error) {
	return b.r.Float(p.Tech+"."+key, p.Location)
}

func (b *Builder) flag(p sets.Pair, key string) (bool, error) {
	return b.r.Bool(p.Tech+"."+key, p.Location)
}

// limit returns v <= max, v == max when forced or in operate mode, and no constraint
// when max is unbounded.
func (b *Builder) limit(v core.VarID, ceiling float64, forced bool) (core.Constraint, bool) {
	if math.IsInf(ceiling, 1) {
		return core.Constraint{}, false
	}
	lhs := core.Expr(core.T(v, 1))
	if forced || b.sets.Mode == config.ModeOperate {
		return core.Eq(lhs, core.Const(ceiling)), true
	}
	return core.Le(lhs, core.Const(ceiling)), true
}
