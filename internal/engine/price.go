package engine

import (
	"context"
	"errors"

	"github.com/mbaumgartner/flipradar/internal/budget"
	"github.com/mbaumgartner/flipradar/internal/metrics"
	"github.com/mbaumgartner/flipradar/internal/oracle"
	"github.com/mbaumgartner/flipradar/pkg/extract"
	"github.com/mbaumgartner/flipradar/pkg/pricing"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// identityWork tracks one component identity through the pricing
// phases of a run.
type identityWork struct {
	key        string
	normalized string
	identity   domain.ProductIdentity
	category   string
	resaleObs  []domain.PriceObservation
	newObs     []domain.PriceObservation
}

// priceTable holds the per-identity estimates of one run. Every
// listing sharing an identity reads the same estimate.
type priceTable struct {
	estimates map[string]domain.PriceEstimate
	// budgetStalled marks identities left without any observation
	// because the oracle budget ran out before they could be queried.
	budgetStalled map[string]bool
}

// priceIdentities builds the run's price table: collect every distinct
// component identity across ready listings, consult the cache, gather
// market observations, top up identities with fewer than two market
// observations through a single batched oracle request, and aggregate.
func (eng *Engine) priceIdentities(ctx context.Context, pending []*pendingListing) *priceTable {
	table := &priceTable{
		estimates:     make(map[string]domain.PriceEstimate),
		budgetStalled: make(map[string]bool),
	}

	work := eng.collectIdentities(pending)
	unresolved := eng.lookupCached(ctx, table, work)
	eng.gatherObservations(ctx, unresolved)
	eng.queryOracle(ctx, table, unresolved)

	for _, w := range unresolved {
		est := domain.PriceEstimate{
			New: eng.aggregator.Aggregate(pricing.AggregateInput{
				Observations: w.newObs,
				Category:     w.category,
			}),
			Resale: eng.aggregator.Aggregate(pricing.AggregateInput{
				Observations: w.resaleObs,
				Category:     w.category,
			}),
		}
		table.estimates[w.key] = est

		if eng.cache != nil && est.Resale.Source != domain.SourceNone && est.Resale.Amount > 0 {
			if err := eng.cache.Set(ctx, w.key, est); err != nil {
				eng.log.Warn("cache write failed", "identity_key", w.key, "error", err)
			}
		}
	}

	return table
}

// collectIdentities lists the distinct component identities of all
// ready listings, first occurrence order.
func (eng *Engine) collectIdentities(pending []*pendingListing) []*identityWork {
	var work []*identityWork
	seen := make(map[string]bool)

	for _, p := range pending {
		if p.gateState != domain.GateReadyForPricing {
			continue
		}
		for _, comp := range p.components() {
			normalized := extract.Normalize(comp.Name, p.listing.CategoryHint)
			identity := extract.BuildIdentity(normalized, p.listing.CategoryHint)
			key := extract.IdentityKey(identity)
			if seen[key] {
				continue
			}
			seen[key] = true
			work = append(work, &identityWork{
				key:        key,
				normalized: normalized,
				identity:   identity,
				category:   p.listing.CategoryHint,
			})
		}
	}

	return work
}

// lookupCached fills the table from the price cache and returns the
// identities still needing fresh data.
func (eng *Engine) lookupCached(ctx context.Context, table *priceTable, work []*identityWork) []*identityWork {
	if eng.cache == nil {
		return work
	}

	unresolved := make([]*identityWork, 0, len(work))
	for _, w := range work {
		est, hit, err := eng.cache.Get(ctx, w.key)
		if err != nil {
			eng.log.Warn("cache read failed", "identity_key", w.key, "error", err)
		} else if hit {
			table.estimates[w.key] = est
			continue
		}
		unresolved = append(unresolved, w)
	}
	return unresolved
}

func (eng *Engine) gatherObservations(ctx context.Context, work []*identityWork) {
	for _, w := range work {
		if ctx.Err() != nil {
			return
		}
		obs, err := eng.market.SearchCompetitors(ctx, w.normalized)
		if err != nil {
			eng.log.Warn("competitor search failed", "query", w.normalized, "error", err)
			continue
		}
		w.resaleObs = obs
	}
}

// queryOracle issues the run's one batched oracle request, covering
// every identity with fewer than two market observations, and appends
// the returned quotes as further observations. Identities beyond the
// batch cap go without oracle data this run and are retried on the
// next cache miss.
func (eng *Engine) queryOracle(ctx context.Context, table *priceTable, work []*identityWork) {
	if eng.oracle == nil {
		return
	}

	var thin []*identityWork
	for _, w := range work {
		if len(w.resaleObs) < 2 {
			thin = append(thin, w)
		}
	}
	if len(thin) == 0 {
		return
	}
	if len(thin) > oracle.MaxBatchQueries {
		thin = thin[:oracle.MaxBatchQueries]
	}

	queries := make([]oracle.PriceQuery, len(thin))
	for i, w := range thin {
		queries[i] = oracle.PriceQuery{Key: w.key, Identity: w.identity}
	}

	quotes, err := eng.oracle.QueryPrices(ctx, queries)
	switch {
	case errors.Is(err, budget.ErrBudgetExhausted):
		metrics.OracleBudgetHits.Inc()
		for _, w := range thin {
			if len(w.resaleObs) == 0 {
				table.budgetStalled[w.key] = true
			}
		}
	case err != nil:
		metrics.OracleFailuresTotal.Inc()
		eng.log.Warn("oracle price query failed", "queries", len(queries), "error", err)
	default:
		metrics.OracleCallsTotal.Inc()
		for _, w := range thin {
			quote, ok := quotes[w.key]
			if !ok {
				continue
			}
			if quote.ResalePrice != nil && *quote.ResalePrice > 0 {
				w.resaleObs = append(w.resaleObs, domain.PriceObservation{
					Amount: *quote.ResalePrice,
					Origin: domain.OriginPriceOracle,
					Source: "oracle",
				})
			}
			if quote.NewPrice != nil && *quote.NewPrice > 0 {
				w.newObs = append(w.newObs, domain.PriceObservation{
					Amount: *quote.NewPrice,
					Origin: domain.OriginPriceOracle,
					Source: "oracle",
				})
			}
		}
	}
}

// applyPrices copies the run's shared estimates onto one listing's
// components. The asking-price heuristic only fires when the component
// IS the listing; a bundle's asking price says nothing about one part.
// Reports whether any component stayed unpriced for budget reasons.
func (eng *Engine) applyPrices(p *pendingListing, table *priceTable) ([]domain.BundleComponent, bool) {
	components := p.components()
	priced := make([]domain.BundleComponent, len(components))
	stalled := false

	for i, comp := range components {
		normalized := extract.Normalize(comp.Name, p.listing.CategoryHint)
		key := extract.IdentityKey(extract.BuildIdentity(normalized, p.listing.CategoryHint))

		est := table.estimates[key]
		if table.budgetStalled[key] {
			stalled = true
		}

		if est.Resale.Source == domain.SourceNone && len(components) == 1 && comp.Quantity <= 1 {
			est.Resale = eng.aggregator.Aggregate(pricing.AggregateInput{
				AskingPrice: p.listing.PurchaseCost(),
				Category:    p.listing.CategoryHint,
			})
		}

		metrics.PriceResolutionsTotal.
			WithLabelValues(string(est.Resale.Source)).Inc()
		metrics.PriceSampleSize.Observe(float64(est.Resale.SampleSize))

		comp.PriceSource = est.Resale.Source
		if est.Resale.Source != domain.SourceNone {
			comp.ResalePrice = est.Resale.Amount
		}
		if est.New.Source != domain.SourceNone {
			comp.NewPrice = est.New.Amount
		}
		priced[i] = comp
	}

	return priced, stalled
}
