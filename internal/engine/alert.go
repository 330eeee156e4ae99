package engine

import (
	"context"
	"fmt"

	"github.com/mbaumgartner/flipradar/internal/notify"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

const batchThreshold = 5

type notifyCandidate struct {
	listing *domain.Listing
	result  domain.EvaluationResult
}

// sendAlerts announces the run's buy verdicts. Few alerts go out one by
// one, a flood goes out as a single batch message.
func (eng *Engine) sendAlerts(ctx context.Context, candidates []notifyCandidate) {
	if eng.notifier == nil || len(candidates) == 0 {
		return
	}

	if len(candidates) >= batchThreshold {
		payloads := make([]notify.BuyAlert, 0, len(candidates))
		for i := range candidates {
			payloads = append(payloads, *buildBuyAlert(&candidates[i]))
		}
		if err := eng.notifier.SendBatchAlert(ctx, payloads); err != nil {
			eng.log.Error("batch alert failed", "count", len(payloads), "error", err)
		}
		return
	}

	for i := range candidates {
		if err := eng.notifier.SendAlert(ctx, buildBuyAlert(&candidates[i])); err != nil {
			eng.log.Error("alert failed",
				"source_id", candidates[i].listing.SourceID, "error", err)
		}
	}
}

func buildBuyAlert(c *notifyCandidate) *notify.BuyAlert {
	currency := c.listing.Currency
	if currency == "" {
		currency = "CHF"
	}

	components := make([]string, 0, len(c.result.Components))
	for _, comp := range c.result.Components {
		components = append(components,
			fmt.Sprintf("%dx %s (%.2f %s)", comp.Quantity, comp.Name, comp.ResalePrice, currency),
		)
	}

	return &notify.BuyAlert{
		ListingTitle:   c.listing.Title,
		ListingURL:     c.listing.ItemURL,
		ImageURL:       c.listing.ImageURL,
		PurchaseCost:   fmt.Sprintf("%.2f %s", c.result.PurchaseCost, currency),
		TotalResale:    fmt.Sprintf("%.2f %s", c.result.TotalResale, currency),
		ExpectedProfit: c.result.ExpectedProfit,
		Currency:       currency,
		BundleType:     string(c.result.BundleType),
		Components:     components,
	}
}
