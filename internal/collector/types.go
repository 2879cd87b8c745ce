package collector

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/energymodels/capacityplanner/pkg/core"
)

// AggregationType defines supported aggregation functions.
type AggregationType string

const (
	AggSum   AggregationType = "sum"
	AggAvg   AggregationType = "avg"
	AggMax   AggregationType = "max"
	AggMin   AggregationType = "min"
	AggCount AggregationType = "count"
	AggLast  AggregationType = "last"
)

// Point is the value of a series at one timestep.
type Point struct {
	Step  string
	Value float64
}

// Series is a per-timestep sequence identified by labels.
type Series struct {
	// Name is the variable family, e.g. "es_prod".
	Name string

	// Labels identify the series, e.g. carrier, tech and location.
	Labels map[string]string

	// Points are in timestep order.
	Points []Point
}

// NewSeries creates an empty Series.
func NewSeries(name string, labels map[string]string) *Series {
	return &Series{
		Name:   name,
		Labels: labels,
		Points: make([]Point, 0),
	}
}

// Add appends a point.
func (s *Series) Add(step string, value float64) {
	s.Points = append(s.Points, Point{Step: step, Value: value})
}

// Values returns the point values in order.
func (s *Series) Values() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Aggregate applies agg over the series. An unknown aggregation yields NaN.
func (s *Series) Aggregate(agg AggregationType) float64 {
	return Aggregate(s.Values(), agg)
}

// LabelSetKey returns a string key representing the label set.
func (s *Series) LabelSetKey() string {
	return LabelSetToKey(s.Labels)
}

// LabelSetToKey converts a label map to a deterministic string key.
func LabelSetToKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, labels[k])
	}
	return strings.Join(parts, ",")
}

// Aggregate applies agg over values. Empty input aggregates to zero.
func Aggregate(values []float64, agg AggregationType) float64 {
	switch agg {
	case AggCount:
		return float64(len(values))
	case AggSum, AggAvg:
		var sum float64
		for _, v := range values {
			sum += v
		}
		if agg == AggAvg && len(values) > 0 {
			return sum / float64(len(values))
		}
		return sum
	case AggMax, AggMin, AggLast:
		if len(values) == 0 {
			return 0
		}
		out := values[0]
		for _, v := range values[1:] {
			switch agg {
			case AggMax:
				out = math.Max(out, v)
			case AggMin:
				out = math.Min(out, v)
			default:
				out = v
			}
		}
		return out
	default:
		return math.NaN()
	}
}

// Capacity is the installed capacity of one (technology, location) pair.
// SCap, RCap and RArea are zero where the variables are not declared.
type Capacity struct {
	Tech     string
	Location string
	ECap     float64
	SCap     float64
	RCap     float64
	RArea    float64
}

// Cost is the cost of one (technology, location) pair in one cost class.
type Cost struct {
	Tech         string
	Location     string
	Class        string
	Total        float64
	Construction float64
	Operation    float64
}

// Snapshot is an immutable point-in-time view of one solve.
type Snapshot struct {
	// Iteration is the SPORES iteration, or -1 outside a SPORES run.
	Iteration int

	Status    core.Status
	Objective float64

	// Capacities and Costs are sorted by technology, location and class.
	Capacities []Capacity
	Costs      []Cost

	// ProductionSeries maps LabelSetToKey(carrier, tech, location) to the es_prod series.
	ProductionSeries map[string]*Series
}

// Capacity returns the capacity record of (tech, loc).
func (s *Snapshot) Capacity(tech, loc string) (Capacity, bool) {
	for _, c := range s.Capacities {
		if c.Tech == tech && c.Location == loc {
			return c, true
		}
	}
	return Capacity{}, false
}

// Cost returns the total cost of (tech, loc) in class, or zero when not recorded.
func (s *Snapshot) Cost(tech, loc, class string) float64 {
	for _, c := range s.Costs {
		if c.Tech == tech && c.Location == loc && c.Class == class {
			return c.Total
		}
	}
	return 0
}

// ClassCosts returns the per-pair totals of class in record order.
func (s *Snapshot) ClassCosts(class string) []float64 {
	var out []float64
	for _, c := range s.Costs {
		if c.Class == class {
			out = append(out, c.Total)
		}
	}
	return out
}

// ClassTotal is the unweighted sum of cost over all pairs in class.
func (s *Snapshot) ClassTotal(class string) float64 {
	return Aggregate(s.ClassCosts(class), AggSum)
}

// Production returns the production series of tech at loc on carrier, or nil.
func (s *Snapshot) Production(carrier, tech, loc string) *Series {
	return s.ProductionSeries[productionKey(carrier, tech, loc)]
}

func productionKey(carrier, tech, loc string) string {
	return LabelSetToKey(productionLabels(carrier, tech, loc))
}

func productionLabels(carrier, tech, loc string) map[string]string {
	return map[string]string{LabelCarrier: carrier, LabelTech: tech, LabelLocation: loc}
}
