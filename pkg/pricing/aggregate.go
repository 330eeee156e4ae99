// Package pricing aggregates per-identity price observations into a
// single estimate: median with outlier rejection when enough market
// data exists, then a fixed fallback ladder down to a buy-now
// heuristic when it does not.
package pricing

import (
	"sort"
)

// Aggregator turns raw price observations into aggregated prices.
type Aggregator struct {
	maxObservations    int
	outlierLow         float64
	outlierHigh        float64
	fallbackMultiplier float64
	plausibility       *PlausibilityTable
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithMaxObservations caps how many observations feed one aggregation.
func WithMaxObservations(n int) AggregatorOption {
	return func(a *Aggregator) {
		a.maxObservations = n
	}
}

// WithOutlierBand sets the multiplicative band around the median
// outside of which observations are rejected.
func WithOutlierBand(low, high float64) AggregatorOption {
	return func(a *Aggregator) {
		a.outlierLow = low
		a.outlierHigh = high
	}
}

// WithFallbackMultiplier sets the factor applied to a listing's asking
// price when no observation survives.
func WithFallbackMultiplier(m float64) AggregatorOption {
	return func(a *Aggregator) {
		a.fallbackMultiplier = m
	}
}

// WithPlausibilityTable sets category sanity bounds applied to
// single-observation and fallback prices.
func WithPlausibilityTable(t *PlausibilityTable) AggregatorOption {
	return func(a *Aggregator) {
		a.plausibility = t
	}
}

// NewAggregator creates an Aggregator with production defaults: at
// most 5 observations, outliers outside [0.6, 1.4] of the median
// rejected, fallback at 110% of asking price.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		maxObservations:    5,
		outlierLow:         0.6,
		outlierHigh:        1.4,
		fallbackMultiplier: 1.1,
		plausibility:       DefaultPlausibility(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Median returns the middle value of vals, averaging the two middle
// values for even lengths. Does not mutate its input. Zero for empty
// input.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// rejectOutliers drops values outside [low*median, high*median] of the
// initial median. One pass only; the band is not recomputed against
// the post-rejection median.
func (a *Aggregator) rejectOutliers(vals []float64) []float64 {
	med := Median(vals)
	if med <= 0 {
		return vals
	}

	lo := med * a.outlierLow
	hi := med * a.outlierHigh

	kept := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v >= lo && v <= hi {
			kept = append(kept, v)
		}
	}
	return kept
}
