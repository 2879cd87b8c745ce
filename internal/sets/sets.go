// Package sets derives the index sets of a model from its configuration: technologies,
// locations, carriers, timesteps and the capability subsets the constraint generators
// dispatch on.
package sets

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/energymodels/capacityplanner/internal/logging"
	"github.com/energymodels/capacityplanner/pkg/config"
)

// Pair is a (technology, location) pair.
type Pair struct {
	Tech     string
	Location string
}

func (p Pair) String() string {
	return p.Tech + "@" + p.Location
}

// Set is an unordered set of names.
type Set map[string]struct{}

// NewSet builds a set from items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the members in sorted order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// NodeClass is the capability class of a valid (tech, location) pair.
type NodeClass int

const (
	// ClassInstantaneous is a production/consumption technology without storage.
	ClassInstantaneous NodeClass = iota
	// ClassStorage is a production/consumption technology with storage capacity.
	ClassStorage
	// ClassConversion converts a source carrier into its output carrier.
	ClassConversion
	// ClassTransmission moves a carrier between two locations.
	ClassTransmission
)

func (c NodeClass) String() string {
	switch c {
	case ClassStorage:
		return "storage"
	case ClassConversion:
		return "conversion"
	case ClassTransmission:
		return "transmission"
	default:
		return "instantaneous"
	}
}

// StepKind says where the storage level carried into a timestep comes from.
type StepKind int

const (
	// StepOrdinary carries from the previous step of the same block.
	StepOrdinary StepKind = iota
	// StepInitial starts a block with the initial storage level.
	StepInitial
	// StepCyclic starts a block from the last step of the same block.
	StepCyclic
	// StepLinked starts a block from the step named in the time links table.
	StepLinked
)

// Predecessor is the step whose storage level carries into a timestep.
type Predecessor struct {
	Step string
	Kind StepKind
}

// Sets holds the derived index sets plus read access to the option resolver and data tables.
type Sets struct {
	Mode         config.RunMode
	Techs        []string
	Locations    []string
	Carriers     []string
	CostClasses  []string
	Timesteps    []string
	Parents      []string
	BalanceLevel int

	Conversion      Set
	Transmission    Set
	StorageCapable  Set
	DefResourceArea Set
	DefEffSeries    Set
	StrictCarriers  Set

	resolver *config.Resolver
	cfg      *config.Config

	carrier  map[string]string
	source   map[string]string
	negative map[string]bool
	valid    map[Pair]bool
	classes  map[Pair]NodeClass
	duration map[string]float64
	stepIdx  map[string]int
	pred     map[string]Predecessor
	families map[string][]string
}

// Build derives all sets from r.
func Build(ctx context.Context, r *config.Resolver) (*Sets, error) {
	logger := ctrl.LoggerFrom(ctx)
	cfg := r.Config()

	s := &Sets{
		Mode:            cfg.EffectiveMode(),
		Locations:       cfg.LocationNames(),
		CostClasses:     append([]string(nil), cfg.EffectiveCostClasses()...),
		BalanceLevel:    cfg.EffectiveBalanceLevel(),
		Conversion:      NewSet(),
		Transmission:    NewSet(),
		StorageCapable:  NewSet(),
		DefResourceArea: NewSet(),
		DefEffSeries:    NewSet(),
		StrictCarriers:  NewSet(),
		resolver:        r,
		cfg:             cfg,
		carrier:         make(map[string]string),
		source:          make(map[string]string),
		negative:        make(map[string]bool),
		valid:           make(map[Pair]bool),
		classes:         make(map[Pair]NodeClass),
		duration:        make(map[string]float64),
		stepIdx:         make(map[string]int),
		pred:            make(map[string]Predecessor),
		families:        make(map[string][]string),
	}

	techSet := NewSet()
	for _, x := range s.Locations {
		for _, y := range r.Permitted(x) {
			techSet[y] = struct{}{}
			s.valid[Pair{Tech: y, Location: x}] = true
		}
	}
	s.Techs = techSet.Sorted()

	carriers := NewSet()
	for _, y := range s.Techs {
		if err := s.classifyTech(y); err != nil {
			return nil, err
		}
		carriers[s.carrier[y]] = struct{}{}
		if src, ok := s.source[y]; ok {
			carriers[src] = struct{}{}
		}
	}
	s.Carriers = carriers.Sorted()
	for _, c := range s.Carriers {
		if cfg.IsStrict(c) {
			s.StrictCarriers[c] = struct{}{}
		}
	}

	for _, p := range s.Pairs() {
		class, err := s.classifyPair(p)
		if err != nil {
			return nil, err
		}
		s.classes[p] = class
	}

	s.buildTime(logger)

	if err := s.buildFamilies(); err != nil {
		return nil, err
	}

	logger.V(logging.DEBUG).Info("Built index sets",
		"techs", len(s.Techs),
		"locations", len(s.Locations),
		"carriers", len(s.Carriers),
		"timesteps", len(s.Timesteps),
		"validPairs", len(s.valid))
	return s, nil
}

func (s *Sets) classifyTech(y string) error {
	r := s.resolver
	carrier, err := r.String(y+"."+config.KeyCarrier, "")
	if err != nil {
		return err
	}
	s.carrier[y] = carrier

	if r.Has(y+"."+config.KeySourceCarrier, "") {
		src, err := r.String(y+"."+config.KeySourceCarrier, "")
		if err != nil {
			return err
		}
		s.source[y] = src
	}

	neg, err := r.Bool(y+"."+config.KeyECanBeNegative, "")
	if err != nil {
		return err
	}
	s.negative[y] = neg

	switch {
	case r.IsDerived(y):
		s.Transmission[y] = struct{}{}
	case s.source[y] != "":
		s.Conversion[y] = struct{}{}
	default:
		s.StorageCapable[y] = struct{}{}
	}

	if len(s.cfg.Data.Efficiency[y]) > 0 {
		s.DefEffSeries[y] = struct{}{}
	}

	if s.StorageCapable.Has(y) {
		if len(s.cfg.Data.Resource[y]) > 0 {
			s.DefResourceArea[y] = struct{}{}
		} else {
			rv, err := r.Float(y+"."+config.KeyR, "")
			if err != nil {
				return err
			}
			if !math.IsInf(rv, 0) {
				s.DefResourceArea[y] = struct{}{}
			}
		}
	}
	return nil
}

func (s *Sets) classifyPair(p Pair) (NodeClass, error) {
	switch {
	case s.Transmission.Has(p.Tech):
		return ClassTransmission, nil
	case s.Conversion.Has(p.Tech):
		return ClassConversion, nil
	}
	sMax, err := s.StorageCapMax(p)
	if err != nil {
		return ClassInstantaneous, err
	}
	if sMax > 0 {
		return ClassStorage, nil
	}
	return ClassInstantaneous, nil
}

func (s *Sets) buildTime(logger logr.Logger) {
	cyclic := s.cfg.Time.Cyclic
	if cyclic && s.Mode == config.ModeOperate {
		logger.Info("Cyclic storage is not supported in operate mode, ignoring", "model", s.cfg.Name)
		cyclic = false
	}

	steps := s.cfg.Time.Steps
	blockStart := 0
	for i, st := range steps {
		s.Timesteps = append(s.Timesteps, st.Label)
		s.duration[st.Label] = st.Duration
		s.stepIdx[st.Label] = i
		if i > 0 && (st.ClusterStart || st.Cluster != steps[i-1].Cluster) {
			s.closeBlock(blockStart, i-1, cyclic)
			blockStart = i
		}
	}
	if len(steps) > 0 {
		s.closeBlock(blockStart, len(steps)-1, cyclic)
	}
}

func (s *Sets) closeBlock(first, last int, cyclic bool) {
	steps := s.cfg.Time.Steps
	for i := first + 1; i <= last; i++ {
		s.pred[steps[i].Label] = Predecessor{Step: steps[i-1].Label, Kind: StepOrdinary}
	}
	head := steps[first].Label
	switch {
	case s.cfg.Time.Links[head] != "":
		s.pred[head] = Predecessor{Step: s.cfg.Time.Links[head], Kind: StepLinked}
	case cyclic:
		s.pred[head] = Predecessor{Step: steps[last].Label, Kind: StepCyclic}
	default:
		s.pred[head] = Predecessor{Kind: StepInitial}
	}
}

func (s *Sets) buildFamilies() error {
	for _, x := range s.Locations {
		if s.cfg.Locations[x].Level == s.BalanceLevel {
			s.Parents = append(s.Parents, x)
			s.families[x] = append(s.families[x], x)
		}
	}
	if len(s.Parents) == 0 {
		return &config.ConfigurationError{Key: "balance_level",
			Reason: fmt.Sprintf("no location has level %d", s.BalanceLevel)}
	}
	for _, x := range s.Locations {
		parent := s.cfg.Locations[x].Within
		if _, ok := s.families[parent]; ok && parent != "" {
			s.families[parent] = append(s.families[parent], x)
		}
	}
	return nil
}

// Resolver returns the option resolver the sets were built from.
func (s *Sets) Resolver() *config.Resolver {
	return s.resolver
}

// Config returns the configuration the sets were built from.
func (s *Sets) Config() *config.Config {
	return s.cfg
}

// Valid reports whether tech is permitted at location.
func (s *Sets) Valid(p Pair) bool {
	return s.valid[p]
}

// Pairs returns all valid pairs sorted by tech, then location.
func (s *Sets) Pairs() []Pair {
	out := make([]Pair, 0, len(s.valid))
	for p := range s.valid {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tech != out[j].Tech {
			return out[i].Tech < out[j].Tech
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// PairsIn returns the valid pairs whose tech belongs to set.
func (s *Sets) PairsIn(set Set) []Pair {
	var out []Pair
	for _, p := range s.Pairs() {
		if set.Has(p.Tech) {
			out = append(out, p)
		}
	}
	return out
}

// AllPairs returns every (tech, location) combination, valid or not.
func (s *Sets) AllPairs() []Pair {
	out := make([]Pair, 0, len(s.Techs)*len(s.Locations))
	for _, y := range s.Techs {
		for _, x := range s.Locations {
			out = append(out, Pair{Tech: y, Location: x})
		}
	}
	return out
}

// Class returns the capability class of a valid pair.
func (s *Sets) Class(p Pair) NodeClass {
	return s.classes[p]
}

// Carrier returns the carrier tech produces.
func (s *Sets) Carrier(tech string) string {
	return s.carrier[tech]
}

// SourceCarrier returns the carrier a conversion tech consumes.
func (s *Sets) SourceCarrier(tech string) (string, bool) {
	c, ok := s.source[tech]
	return c, ok
}

// ProducesOn reports whether es_prod[c, tech, ...] is declared.
func (s *Sets) ProducesOn(c, tech string) bool {
	return s.carrier[tech] == c
}

// ConsumesOn reports whether es_con[c, tech, ...] is declared.
func (s *Sets) ConsumesOn(c, tech string) bool {
	if s.source[tech] == c {
		return true
	}
	return s.carrier[tech] == c && (s.negative[tech] || s.Transmission.Has(tech))
}

// Remote returns the other end of a transmission pair.
func (s *Sets) Remote(p Pair) (Pair, bool) {
	e, ok := s.resolver.Remote(p.Tech, p.Location)
	if !ok {
		return Pair{}, false
	}
	return Pair{Tech: e.Tech, Location: e.Location}, true
}

// Duration returns the length of timestep t in hours.
func (s *Sets) Duration(t string) float64 {
	return s.duration[t]
}

// TotalDuration returns the summed length of all timesteps in hours.
func (s *Sets) TotalDuration() float64 {
	var total float64
	for _, t := range s.Timesteps {
		total += s.duration[t]
	}
	return total
}

// Previous returns where the storage level carried into t comes from.
func (s *Sets) Previous(t string) Predecessor {
	return s.pred[t]
}

// Family returns a balance parent followed by its direct children.
func (s *Sets) Family(parent string) []string {
	return s.families[parent]
}

// Resource returns the raw resource signal of p at t: the data series when the tech has
// one at the location, otherwise the scalar r option.
func (s *Sets) Resource(p Pair, t string) (float64, error) {
	if series, ok := s.cfg.Data.Resource[p.Tech][p.Location]; ok {
		return series[s.stepIdx[t]], nil
	}
	return s.resolver.Float(p.Tech+"."+config.KeyR, p.Location)
}

// Efficiency returns the conversion efficiency of p at t: the data series when the tech
// declares a time-varying efficiency at the location, otherwise the scalar e_eff.
func (s *Sets) Efficiency(p Pair, t string) (float64, error) {
	if s.DefEffSeries.Has(p.Tech) {
		if series, ok := s.cfg.Data.Efficiency[p.Tech][p.Location]; ok {
			return series[s.stepIdx[t]], nil
		}
	}
	return s.resolver.Float(p.Tech+"."+config.KeyEEff, p.Location)
}

// EfficiencyRef returns the reference efficiency used to relate storage and area to
// capacity: e_eff_ref when positive, else the mean of the efficiency series, else e_eff.
func (s *Sets) EfficiencyRef(p Pair) (float64, error) {
	ref, err := s.resolver.Float(p.Tech+"."+config.KeyEEffRef, p.Location)
	if err != nil {
		return 0, err
	}
	if ref > 0 {
		return ref, nil
	}
	if s.DefEffSeries.Has(p.Tech) {
		if series, ok := s.cfg.Data.Efficiency[p.Tech][p.Location]; ok && len(series) > 0 {
			var sum float64
			for _, v := range series {
				sum += v
			}
			return sum / float64(len(series)), nil
		}
	}
	return s.resolver.Float(p.Tech+"."+config.KeyEEff, p.Location)
}

// StorageCapMax returns the storage capacity ceiling of p. With use_s_time it is
// s_time_max * e_cap_max / e_eff_ref; a zero reference efficiency yields zero.
func (s *Sets) StorageCapMax(p Pair) (float64, error) {
	r := s.resolver
	useTime, err := r.Bool(p.Tech+"."+config.KeyUseSTime, p.Location)
	if err != nil {
		return 0, err
	}
	if !useTime {
		return r.Float(p.Tech+"."+config.KeySCapMax, p.Location)
	}
	sTime, err := r.Float(p.Tech+"."+config.KeySTimeMax, p.Location)
	if err != nil {
		return 0, err
	}
	eMax, err := r.Float(p.Tech+"."+config.KeyECapMax, p.Location)
	if err != nil {
		return 0, err
	}
	ref, err := s.EfficiencyRef(p)
	if err != nil {
		return 0, err
	}
	if ref == 0 || sTime == 0 {
		return 0, nil
	}
	return sTime * eMax / ref, nil
}

// StorageInit returns the operate-mode initial storage level of p, if tabulated.
func (s *Sets) StorageInit(p Pair) (float64, bool) {
	v, ok := s.cfg.Data.StorageInit[p.Location][p.Tech]
	return v, ok
}
