package engine

import (
	"context"

	"github.com/mbaumgartner/flipradar/internal/metrics"
	"github.com/mbaumgartner/flipradar/pkg/evaluate"
	"github.com/mbaumgartner/flipradar/pkg/extract"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// evaluatePending prices every identity of the run once, then judges
// every listing against the shared estimates: duplicates of one
// product each get their own verdict from one price lookup. Returns
// the number of verdicts written.
func (eng *Engine) evaluatePending(ctx context.Context, pending []*pendingListing) int {
	eng.groupReady(pending)
	table := eng.priceIdentities(ctx, pending)

	evaluated := 0
	var alerts []notifyCandidate

	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}

		res := eng.evaluateListing(p, table)

		metrics.EvaluationsTotal.WithLabelValues(string(res.Strategy)).Inc()
		if res.SkipReason == "" || res.SkipReason == domain.SkipBelowMargin {
			metrics.ExpectedProfit.Observe(res.ExpectedProfit)
		}

		if err := eng.store.UpdateListingEvaluation(ctx, p.listing.ID, &res); err != nil {
			eng.log.Error("storing evaluation failed", "source_id", p.listing.SourceID, "error", err)
			continue
		}
		evaluated++

		if res.Strategy == domain.StrategyBuy {
			alerts = append(alerts, notifyCandidate{listing: p.listing, result: res})
		}
	}

	eng.sendAlerts(ctx, alerts)

	return evaluated
}

// groupReady builds the run's identity grouping before pricing begins
// and reports how many ready listings ride along on another listing's
// identity.
func (eng *Engine) groupReady(pending []*pendingListing) {
	var ready []domain.Listing
	for _, p := range pending {
		if p.gateState == domain.GateReadyForPricing {
			ready = append(ready, *p.listing)
		}
	}

	groups := extract.GroupByIdentity(ready)

	duplicates := 0
	for _, ids := range groups {
		duplicates += len(ids) - 1
	}
	if duplicates > 0 {
		metrics.DedupedListingsTotal.Add(float64(duplicates))
		eng.log.Info("grouped listings by identity",
			"groups", len(groups), "duplicates", duplicates)
	}
}

func (eng *Engine) evaluateListing(p *pendingListing, table *priceTable) domain.EvaluationResult {
	components := p.classification.Components

	if p.gateState == domain.GateReadyForPricing {
		priced, stalled := eng.applyPrices(p, table)
		components = priced
		if stalled {
			p.budgetExhausted = true
		}
	}

	res := eng.evaluator.Evaluate(evaluate.Input{
		ListingID:    p.listing.ID,
		IdentityKey:  p.identityKey,
		Bundle:       p.classification,
		GateState:    p.gateState,
		PurchaseCost: p.listing.PurchaseCost(),
		Components:   components,
	})

	// A budget stall is not a price problem with the listing itself;
	// record it so the next run retries instead of burying the listing.
	if p.budgetExhausted &&
		(res.SkipReason == domain.SkipUnpricedComponent || res.SkipReason == domain.SkipNoPriceData) {
		res.SkipReason = domain.SkipBudgetExhausted
	}

	return res
}
