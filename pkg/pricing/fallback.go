package pricing

import (
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// AggregateInput carries everything one aggregation needs.
type AggregateInput struct {
	Observations []domain.PriceObservation
	// AskingPrice is the listing's own price, the base for the
	// last-resort heuristic. Zero disables the heuristic tier.
	AskingPrice float64
	// Category selects plausibility bounds for thin-data tiers.
	Category string
}

// Aggregate resolves a price through a fixed ladder, most trustworthy
// tier first:
//
//  1. two or more observations → outlier-rejected median (market_median)
//  2. one market observation → that price, if plausible (market_single)
//  3. one oracle observation → that estimate (oracle_estimate)
//  4. asking price heuristic (fallback_heuristic)
//  5. none
//
// A tier that cannot produce a plausible price falls through to the
// next. The result's Source always states which tier fired; callers
// must never mistake a heuristic for market data.
func (a *Aggregator) Aggregate(in AggregateInput) domain.AggregatedPrice {
	obs := in.Observations
	if len(obs) > a.maxObservations {
		obs = obs[:a.maxObservations]
	}

	resolvers := []func() (domain.AggregatedPrice, bool){
		func() (domain.AggregatedPrice, bool) { return a.resolveMedian(obs) },
		func() (domain.AggregatedPrice, bool) { return a.resolveSingleMarket(obs, in.Category) },
		func() (domain.AggregatedPrice, bool) { return a.resolveSingleOracle(obs) },
		func() (domain.AggregatedPrice, bool) { return a.resolveHeuristic(in.AskingPrice, in.Category) },
	}

	for _, resolve := range resolvers {
		if price, ok := resolve(); ok {
			return price
		}
	}

	return domain.AggregatedPrice{Source: domain.SourceNone}
}

func (a *Aggregator) resolveMedian(obs []domain.PriceObservation) (domain.AggregatedPrice, bool) {
	if len(obs) < 2 {
		return domain.AggregatedPrice{}, false
	}

	vals := make([]float64, 0, len(obs))
	for _, o := range obs {
		if o.Amount > 0 {
			vals = append(vals, o.Amount)
		}
	}
	if len(vals) < 2 {
		return domain.AggregatedPrice{}, false
	}

	kept := a.rejectOutliers(vals)
	if len(kept) < 2 {
		return domain.AggregatedPrice{}, false
	}

	return domain.AggregatedPrice{
		Amount:     Median(kept),
		Source:     domain.SourceMarketMedian,
		SampleSize: len(kept),
	}, true
}

func (a *Aggregator) resolveSingleMarket(obs []domain.PriceObservation, category string) (domain.AggregatedPrice, bool) {
	single, ok := onlyObservation(obs, domain.OriginMarketCompetitor)
	if !ok {
		return domain.AggregatedPrice{}, false
	}
	if !a.plausible(category, single.Amount) {
		return domain.AggregatedPrice{}, false
	}

	return domain.AggregatedPrice{
		Amount:     single.Amount,
		Source:     domain.SourceMarketSingle,
		SampleSize: 1,
	}, true
}

func (a *Aggregator) resolveSingleOracle(obs []domain.PriceObservation) (domain.AggregatedPrice, bool) {
	single, ok := onlyObservation(obs, domain.OriginPriceOracle)
	if !ok {
		return domain.AggregatedPrice{}, false
	}

	return domain.AggregatedPrice{
		Amount:     single.Amount,
		Source:     domain.SourceOracleEstimate,
		SampleSize: 1,
	}, true
}

func (a *Aggregator) resolveHeuristic(askingPrice float64, category string) (domain.AggregatedPrice, bool) {
	if askingPrice <= 0 {
		return domain.AggregatedPrice{}, false
	}

	amount := askingPrice * a.fallbackMultiplier
	if !a.plausible(category, amount) {
		return domain.AggregatedPrice{}, false
	}

	return domain.AggregatedPrice{
		Amount: amount,
		Source: domain.SourceFallbackHeuristic,
	}, true
}

func (a *Aggregator) plausible(category string, amount float64) bool {
	if a.plausibility == nil {
		return amount > 0
	}
	return a.plausibility.Plausible(category, amount)
}

// onlyObservation returns the single positive observation of the given
// origin if it is the only usable observation at all.
func onlyObservation(obs []domain.PriceObservation, origin domain.PriceOrigin) (domain.PriceObservation, bool) {
	var found domain.PriceObservation
	count := 0
	for _, o := range obs {
		if o.Amount <= 0 {
			continue
		}
		count++
		found = o
	}
	if count != 1 || found.Origin != origin {
		return domain.PriceObservation{}, false
	}
	return found, true
}
