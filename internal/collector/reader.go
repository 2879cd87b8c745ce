package collector

import "sort"

// Labels of the production series.
const (
	LabelCarrier  = "carrier"
	LabelTech     = "tech"
	LabelLocation = "location"
)

// Reader provides read-only access to the series of a solved iteration.
// This interface is used by reports to query results without knowing the model layout.
type Reader interface {
	// GetTimeSeries returns the series of metric with exactly labels.
	// Returns nil if the series is not recorded.
	GetTimeSeries(metric string, labels map[string]string) *Series

	// GetAggregated aggregates the points of every series of metric whose labels
	// include groupBy. An empty groupBy matches every series.
	GetAggregated(metric string, aggType AggregationType, groupBy map[string]string) float64

	// GetLatestValue returns the value at the last timestep.
	// Returns 0 if the series is not recorded.
	GetLatestValue(metric string, labels map[string]string) float64
}

var _ Reader = &Snapshot{}

// GetTimeSeries implements Reader.
func (s *Snapshot) GetTimeSeries(metric string, labels map[string]string) *Series {
	series := s.ProductionSeries[LabelSetToKey(labels)]
	if series == nil || series.Name != metric {
		return nil
	}
	return series
}

// GetAggregated implements Reader. Series are visited in key order.
func (s *Snapshot) GetAggregated(metric string, aggType AggregationType, groupBy map[string]string) float64 {
	keys := make([]string, 0, len(s.ProductionSeries))
	for k := range s.ProductionSeries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var values []float64
	for _, k := range keys {
		series := s.ProductionSeries[k]
		if series.Name != metric || !matches(series.Labels, groupBy) {
			continue
		}
		values = append(values, series.Values()...)
	}
	return Aggregate(values, aggType)
}

// GetLatestValue implements Reader.
func (s *Snapshot) GetLatestValue(metric string, labels map[string]string) float64 {
	series := s.GetTimeSeries(metric, labels)
	if series == nil {
		return 0
	}
	return series.Aggregate(AggLast)
}

func matches(labels, groupBy map[string]string) bool {
	for k, v := range groupBy {
		if labels[k] != v {
			return false
		}
	}
	return true
}
