package config

import (
	"sort"
	"strings"

	"k8s.io/utils/ptr"
)

// RunMode selects between capacity planning and fixed-capacity operation.
type RunMode string

const (
	ModePlan    RunMode = "plan"
	ModeOperate RunMode = "operate"
)

const (
	// DefaultsTech is the name of the technology every inheritance chain ends in.
	DefaultsTech = "defaults"

	// DefaultCostClass is the cost class minimized when nothing else is requested.
	DefaultCostClass = "monetary"

	// LinkSeparator joins a transmission technology and its remote location,
	// e.g. "hvac:region2".
	LinkSeparator = ":"
)

// Config is a model definition: technologies, locations, links, time axis and data tables.
type Config struct {
	// Name is a free-form model name used in logs and results.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Mode is plan (capacities are decisions) or operate (capacities are fixed).
	Mode RunMode `yaml:"mode,omitempty" json:"mode,omitempty" validate:"omitempty,oneof=plan operate"`

	// Techs maps technology names to option trees. A tree may name its parent with
	// the "parent" key; every chain ends in the "defaults" technology.
	Techs map[string]Tree `yaml:"techs" json:"techs" validate:"required,min=1"`

	// Locations maps location names to their permitted technologies and overrides.
	Locations map[string]Location `yaml:"locations" json:"locations" validate:"required,min=1,dive"`

	// Links maps "a,b" location pairs to transmission technologies and their options.
	Links map[string]map[string]Tree `yaml:"links,omitempty" json:"links,omitempty"`

	// Carriers holds per-carrier settings; carriers absent here use CarrierSettings defaults.
	Carriers map[string]CarrierSettings `yaml:"carriers,omitempty" json:"carriers,omitempty"`

	// CostClasses lists the cost classes for which cost variables are declared.
	CostClasses []string `yaml:"cost_classes,omitempty" json:"cost_classes,omitempty"`

	// BalanceLevel is the location level whose families are balanced. Defaults to 1.
	BalanceLevel *int `yaml:"balance_level,omitempty" json:"balance_level,omitempty"`

	Time TimeAxis `yaml:"time" json:"time"`

	Data Data `yaml:"data,omitempty" json:"data,omitempty"`

	// Iteration is stamped on configurations revised by the SPORES controller.
	// Input configurations must leave it unset.
	Iteration *int `yaml:"iteration,omitempty" json:"iteration,omitempty"`
}

// Location is a node of the model.
type Location struct {
	// Level is the depth in the location hierarchy; top-level locations have level 0.
	Level int `yaml:"level" json:"level" validate:"gte=0"`

	// Within names the parent location, if any.
	Within string `yaml:"within,omitempty" json:"within,omitempty"`

	// Techs lists the technologies permitted at this location.
	Techs []string `yaml:"techs,omitempty" json:"techs,omitempty"`

	// Override maps technology names to option trees that take precedence at this location.
	Override map[string]Tree `yaml:"override,omitempty" json:"override,omitempty"`
}

// CarrierSettings holds per-carrier options.
type CarrierSettings struct {
	// Strict makes the system balance an equality; otherwise surplus is allowed.
	// Use pointer to allow omitting this field; "power" is strict by default.
	Strict *bool `yaml:"strict,omitempty" json:"strict,omitempty"`
}

// TimeAxis is the ordered set of timesteps.
type TimeAxis struct {
	Steps []Timestep `yaml:"steps" json:"steps" validate:"required,min=1,dive"`

	// Cyclic links the first step of each block to the last step of the same block.
	Cyclic bool `yaml:"cyclic,omitempty" json:"cyclic,omitempty"`

	// Links maps the first step of a cluster block to the step whose storage level
	// carries into it.
	Links map[string]string `yaml:"links,omitempty" json:"links,omitempty"`
}

// Timestep is one step of the time axis.
type Timestep struct {
	Label string `yaml:"label" json:"label" validate:"required"`

	// Duration in hours.
	Duration float64 `yaml:"duration" json:"duration" validate:"gt=0"`

	// Cluster names the representative period the step belongs to, if any.
	Cluster string `yaml:"cluster,omitempty" json:"cluster,omitempty"`

	// ClusterStart marks the first step of a block even when the cluster label
	// does not change, e.g. two consecutive occurrences of the same period.
	ClusterStart bool `yaml:"cluster_start,omitempty" json:"cluster_start,omitempty"`
}

// Data holds time-indexed and operational tables.
type Data struct {
	// Resource maps tech -> location -> per-timestep resource signal.
	Resource map[string]map[string][]float64 `yaml:"resource,omitempty" json:"resource,omitempty"`

	// Efficiency maps tech -> location -> per-timestep conversion efficiency.
	Efficiency map[string]map[string][]float64 `yaml:"efficiency,omitempty" json:"efficiency,omitempty"`

	// StorageInit maps location -> tech -> initial storage level, used in operate mode.
	StorageInit map[string]map[string]float64 `yaml:"storage_init,omitempty" json:"storage_init,omitempty"`
}

// EffectiveMode returns the run mode with the plan default applied.
func (c *Config) EffectiveMode() RunMode {
	if c.Mode == "" {
		return ModePlan
	}
	return c.Mode
}

// EffectiveBalanceLevel returns the balance level with the default applied.
func (c *Config) EffectiveBalanceLevel() int {
	return ptr.Deref(c.BalanceLevel, 1)
}

// EffectiveCostClasses returns the declared cost classes, defaulting to monetary.
func (c *Config) EffectiveCostClasses() []string {
	if len(c.CostClasses) == 0 {
		return []string{DefaultCostClass}
	}
	return c.CostClasses
}

// IsStrict reports whether the system balance of carrier must hold with equality.
func (c *Config) IsStrict(carrier string) bool {
	return ptr.Deref(c.Carriers[carrier].Strict, carrier == "power")
}

// LocationNames returns all location names in sorted order.
func (c *Config) LocationNames() []string {
	out := make([]string, 0, len(c.Locations))
	for name := range c.Locations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParseLink splits a "a,b" link key.
func ParseLink(key string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(key, ",")
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a, b, ok && a != "" && b != "" && a != b
}

// TransmissionTech returns the derived technology name for base at the remote end.
func TransmissionTech(base, remote string) string {
	return base + LinkSeparator + remote
}

// DeepCopy returns an independent copy of the configuration.
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Techs = make(map[string]Tree, len(c.Techs))
	for k, v := range c.Techs {
		out.Techs[k] = v.DeepCopy()
	}
	out.Locations = make(map[string]Location, len(c.Locations))
	for k, v := range c.Locations {
		loc := v
		loc.Techs = append([]string(nil), v.Techs...)
		if v.Override != nil {
			loc.Override = make(map[string]Tree, len(v.Override))
			for tk, tv := range v.Override {
				loc.Override[tk] = tv.DeepCopy()
			}
		}
		out.Locations[k] = loc
	}
	if c.Links != nil {
		out.Links = make(map[string]map[string]Tree, len(c.Links))
		for k, v := range c.Links {
			techs := make(map[string]Tree, len(v))
			for tk, tv := range v {
				techs[tk] = tv.DeepCopy()
			}
			out.Links[k] = techs
		}
	}
	if c.Carriers != nil {
		out.Carriers = make(map[string]CarrierSettings, len(c.Carriers))
		for k, v := range c.Carriers {
			out.Carriers[k] = v
		}
	}
	out.CostClasses = append([]string(nil), c.CostClasses...)
	if c.BalanceLevel != nil {
		out.BalanceLevel = ptr.To(*c.BalanceLevel)
	}
	if c.Iteration != nil {
		out.Iteration = ptr.To(*c.Iteration)
	}
	out.Time.Steps = append([]Timestep(nil), c.Time.Steps...)
	if c.Time.Links != nil {
		out.Time.Links = make(map[string]string, len(c.Time.Links))
		for k, v := range c.Time.Links {
			out.Time.Links[k] = v
		}
	}
	// Data tables are read-only after load and are shared between copies.
	return &out
}

// WithOverride returns a copy of c with value set at path for tech at loc.
func (c *Config) WithOverride(loc, tech, path string, value any) *Config {
	out := c.DeepCopy()
	out.SetOverride(loc, tech, path, value)
	return out
}

// SetOverride sets value at path for tech at loc in place.
func (c *Config) SetOverride(loc, tech, path string, value any) {
	l := c.Locations[loc]
	if l.Override == nil {
		l.Override = make(map[string]Tree)
	}
	t, ok := l.Override[tech]
	if !ok {
		t = Tree{}
		l.Override[tech] = t
	}
	t.Set(path, value)
	c.Locations[loc] = l
}
