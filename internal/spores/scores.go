package spores

import (
	"math"
	"sort"

	"github.com/energymodels/capacityplanner/internal/collector"
	"github.com/energymodels/capacityplanner/internal/optimizer"
	"github.com/energymodels/capacityplanner/internal/sets"
	"github.com/energymodels/capacityplanner/pkg/config"
)

// Scores holds the diversity score of each (technology, location) pair. A Scores value
// is never modified after creation; Next returns a new one.
type Scores struct {
	values map[sets.Pair]float64
}

// NewScores returns scores holding a copy of values.
func NewScores(values map[sets.Pair]float64) Scores {
	out := make(map[sets.Pair]float64, len(values))
	for p, v := range values {
		out[p] = v
	}
	return Scores{values: out}
}

// Get returns the score of p, zero when p was never scored.
func (s Scores) Get(p sets.Pair) float64 {
	return s.values[p]
}

// Next returns the scores with increments added.
func (s Scores) Next(increments map[sets.Pair]float64) Scores {
	out := NewScores(s.values)
	for p, inc := range increments {
		out.values[p] += inc
	}
	return out
}

// Total returns the sum of all scores.
func (s Scores) Total() float64 {
	total := 0.0
	for _, v := range s.values {
		total += v
	}
	return total
}

// Len returns the number of scored pairs.
func (s Scores) Len() int {
	return len(s.values)
}

// Pairs returns the scored pairs ordered by technology, then location.
func (s Scores) Pairs() []sets.Pair {
	out := make([]sets.Pair, 0, len(s.values))
	for p := range s.values {
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

// increments scores the capacity each pair built beyond its forced minimum. Pairs
// whose capacity is fixed, and every pair in operate mode, are never scored.
func increments(p *optimizer.Problem, snap *collector.Snapshot, opts Options) (map[sets.Pair]float64, error) {
	out := make(map[sets.Pair]float64)
	if p.Sets.Mode == config.ModeOperate {
		return out, nil
	}
	for _, pair := range p.Sets.Pairs() {
		forced, err := p.Resolver.Bool(pair.Tech+"."+config.KeyECapMaxForce, pair.Location)
		if err != nil {
			return nil, err
		}
		if forced {
			continue
		}
		floor, err := p.Resolver.Float(pair.Tech+"."+config.KeyECapMin, pair.Location)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(floor) || math.IsInf(floor, 0) {
			floor = 0
		}
		c, ok := snap.Capacity(pair.Tech, pair.Location)
		if !ok {
			continue
		}
		additional := c.ECap - math.Max(floor, 0)
		if additional > opts.ScoreThreshold {
			out[pair] = opts.ScoreIncrement * additional
		}
	}
	return out, nil
}
