package config

import "math"

// Option keys read by the constraint generators, relative to a technology.
const (
	KeyParent          = "parent"
	KeyCarrier         = "carrier"
	KeySourceCarrier   = "source_carrier"
	KeyWeight          = "weight"
	KeyR               = "constraints.r"
	KeyRScale          = "constraints.r_scale"
	KeyREff            = "constraints.r_eff"
	KeyForceR          = "constraints.force_r"
	KeyRAreaMax        = "constraints.r_area_max"
	KeyRAreaMaxForce   = "constraints.r_area_max_force"
	KeyRAreaPerECap    = "constraints.r_area_per_e_cap"
	KeyRCapMax         = "constraints.r_cap_max"
	KeyRCapMaxForce    = "constraints.r_cap_max_force"
	KeySCapMax         = "constraints.s_cap_max"
	KeySCapMaxForce    = "constraints.s_cap_max_force"
	KeyUseSTime        = "constraints.use_s_time"
	KeySTimeMax        = "constraints.s_time_max"
	KeySLoss           = "constraints.s_loss"
	KeySInitFrac       = "constraints.s_init_frac"
	KeyECapMax         = "constraints.e_cap_max"
	KeyECapMaxScale    = "constraints.e_cap_max_scale"
	KeyECapMaxForce    = "constraints.e_cap_max_force"
	KeyECapMin         = "constraints.e_cap_min"
	KeyECapMinUse      = "constraints.e_cap_min_use"
	KeyEEff            = "constraints.e_eff"
	KeyEEffRef         = "constraints.e_eff_ref"
	KeyECanBeNegative  = "constraints.e_can_be_negative"
	KeyPlantLife       = "depreciation.plant_life"
	KeyInterestDefault = "depreciation.interest.default"
)

// CostKey returns the key of a unit cost for class k, e.g. "costs.monetary.e_cap".
func CostKey(class, name string) string {
	return "costs." + class + "." + name
}

// DefaultCostKey returns the class-independent fallback of a unit cost.
func DefaultCostKey(name string) string {
	return "costs.default." + name
}

// InterestKey returns the interest rate key for class k.
func InterestKey(class string) string {
	return "depreciation.interest." + class
}

// Cost names understood by the cost generator.
const (
	CostSCap    = "s_cap"
	CostRCap    = "r_cap"
	CostRArea   = "r_area"
	CostECap    = "e_cap"
	CostOMFrac  = "om_frac"
	CostOMFixed = "om_fixed"
	CostOMVar   = "om_var"
	CostOMFuel  = "om_fuel"
)

// CostNames lists every unit cost in a fixed order.
var CostNames = []string{CostSCap, CostRCap, CostRArea, CostECap, CostOMFrac, CostOMFixed, CostOMVar, CostOMFuel}

// builtinDefaults terminates every inheritance chain, below the model's own
// "defaults" technology. The default r of +Inf means an unlimited resource: rs is
// then left free, so storage technologies must set r (usually r: 0 with force_r)
// to avoid acting as a free source.
func builtinDefaults() Tree {
	inf := math.Inf(1)
	return Tree{
		KeyWeight: 1.0,
		"constraints": map[string]any{
			"r":                 inf,
			"r_scale":           1.0,
			"r_eff":             1.0,
			"force_r":           false,
			"r_area_max":        false,
			"r_area_max_force":  false,
			"r_area_per_e_cap":  false,
			"r_cap_max":         inf,
			"r_cap_max_force":   false,
			"s_cap_max":         0.0,
			"s_cap_max_force":   false,
			"use_s_time":        false,
			"s_time_max":        0.0,
			"s_loss":            0.0,
			"s_init_frac":       0.0,
			"e_cap_max":         inf,
			"e_cap_max_scale":   1.0,
			"e_cap_max_force":   false,
			"e_cap_min":         0.0,
			"e_cap_min_use":     0.0,
			"e_eff":             1.0,
			"e_eff_ref":         0.0,
			"e_can_be_negative": false,
		},
		"costs": map[string]any{
			"default": map[string]any{
				CostSCap:    0.0,
				CostRCap:    0.0,
				CostRArea:   0.0,
				CostECap:    0.0,
				CostOMFrac:  0.0,
				CostOMFixed: 0.0,
				CostOMVar:   0.0,
				CostOMFuel:  0.0,
			},
		},
		"depreciation": map[string]any{
			"plant_life": 25.0,
			"interest": map[string]any{
				"default": 0.10,
			},
		},
	}
}
