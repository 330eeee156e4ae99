package engine

import (
	"context"
	"errors"

	"github.com/mbaumgartner/flipradar/internal/budget"
	"github.com/mbaumgartner/flipradar/internal/metrics"
	"github.com/mbaumgartner/flipradar/pkg/extract"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Confidence assigned to an oracle-decomposed bundle. High enough to
// pass the pricing gate, lower than an explicit title breakdown.
const enrichedConfidence = 0.75

// enrichPending gives every unresolved listing exactly one enrichment
// round: fetch the detail page, re-run the classification rules over
// the fuller text, and only if those still cannot resolve the
// composition ask the oracle to decompose the bundle. Whatever the
// round yields, the listing ends terminal.
func (eng *Engine) enrichPending(ctx context.Context, pending []*pendingListing) {
	for _, p := range pending {
		if p.gateState != domain.GateNeedsEnrichment {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		eng.enrichListing(ctx, p)
	}
}

func (eng *Engine) enrichListing(ctx context.Context, p *pendingListing) {
	metrics.EnrichmentsTotal.Inc()

	l := p.listing

	detail, err := eng.market.FetchDetail(ctx, l.ItemURL)
	if err != nil {
		eng.log.Warn("detail fetch failed", "source_id", l.SourceID, "error", err)
	} else if detail.Description != "" {
		l.Description = detail.Description
		if err := eng.store.UpdateListingDescription(ctx, l.ID, detail.Description); err != nil {
			eng.log.Error("storing description failed", "source_id", l.SourceID, "error", err)
		}
	}

	// The round is consumed whether or not it yields components.
	p.gateState, _ = extract.AdvanceGate(p.gateState, p.classification)

	// The rules get first crack at the enriched text; the oracle is
	// only asked when they still cannot resolve the composition.
	interps := extract.ClassifyNumericTokens(p.normalized)
	reclassified := extract.ClassifyBundle(p.normalized, l.Description, interps)

	switch {
	case extract.Resolved(reclassified):
		p.classification = reclassified
	case eng.oracle != nil:
		components, decompErr := eng.oracle.DecomposeBundle(ctx, p.normalized, l.Description)
		switch {
		case errors.Is(decompErr, budget.ErrBudgetExhausted):
			metrics.OracleBudgetHits.Inc()
			p.budgetExhausted = true
		case decompErr != nil:
			metrics.OracleFailuresTotal.Inc()
			eng.log.Warn("bundle decomposition failed", "source_id", l.SourceID, "error", decompErr)
		case len(components) > 0:
			metrics.OracleCallsTotal.Inc()
			p.classification = domain.BundleClassification{
				Type:       domain.BundleQuantity,
				Confidence: enrichedConfidence,
				Components: components,
			}
		default:
			metrics.OracleCallsTotal.Inc()
		}
	}

	p.gateState, _ = extract.AdvanceGate(p.gateState, p.classification)

	if p.gateState == domain.GateReadyForPricing {
		p.identityKey = extract.IdentityKey(extract.BuildIdentity(p.normalized, l.CategoryHint))
	}

	if err := eng.storeDerived(ctx, p); err != nil {
		eng.log.Error("storing enriched state failed", "source_id", l.SourceID, "error", err)
	}
}
