package evaluate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestEvaluate_BundleResaleSumsComponents(t *testing.T) {
	t.Parallel()

	// Four 5kg plates at CHF 7.50 resale each: CHF 30 total.
	e := NewEvaluator(WithFeeRate(0), WithMinProfit(10), WithClock(fixedClock()))

	res := e.Evaluate(Input{
		ListingID:    "l-1",
		IdentityKey:  "unknown:hantelscheibe_5kg:fitness",
		GateState:    domain.GateReadyForPricing,
		PurchaseCost: 12,
		Bundle: domain.BundleClassification{
			Type:       domain.BundleQuantity,
			Confidence: 0.9,
		},
		Components: []domain.BundleComponent{{
			Name:        "Hantelscheibe 5kg",
			Quantity:    4,
			UnitSpec:    "5kg",
			NewPrice:    15,
			ResalePrice: 7.5,
			PriceSource: domain.SourceMarketMedian,
		}},
	})

	assert.Equal(t, 30.0, res.TotalResale)
	assert.Equal(t, 60.0, res.TotalNew)
	assert.Equal(t, 18.0, res.ExpectedProfit)
	assert.Equal(t, domain.StrategyBuy, res.Strategy)
	assert.Empty(t, res.SkipReason)
}

func TestEvaluate_FeesReduceProfit(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(WithFeeRate(0.10), WithMinProfit(10), WithClock(fixedClock()))

	res := e.Evaluate(Input{
		GateState:    domain.GateReadyForPricing,
		PurchaseCost: 50,
		Bundle:       domain.BundleClassification{Type: domain.BundleSingleItem},
		Components: []domain.BundleComponent{{
			Name:        "Dyson V11",
			Quantity:    1,
			ResalePrice: 100,
			PriceSource: domain.SourceMarketMedian,
		}},
	})

	assert.Equal(t, 10.0, res.Fees)
	assert.Equal(t, 40.0, res.ExpectedProfit)
	assert.Equal(t, domain.StrategyBuy, res.Strategy)
}

func TestEvaluate_ProfitMustExceedThreshold(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(WithFeeRate(0), WithMinProfit(10), WithClock(fixedClock()))

	// Profit exactly at the threshold is not enough.
	res := e.Evaluate(Input{
		GateState:    domain.GateReadyForPricing,
		PurchaseCost: 20,
		Bundle:       domain.BundleClassification{Type: domain.BundleSingleItem},
		Components: []domain.BundleComponent{{
			Name:        "Hemd",
			Quantity:    1,
			ResalePrice: 30,
			PriceSource: domain.SourceMarketSingle,
		}},
	})

	assert.Equal(t, 10.0, res.ExpectedProfit)
	assert.Equal(t, domain.StrategySkip, res.Strategy)
	assert.Equal(t, domain.SkipBelowMargin, res.SkipReason)
}

func TestEvaluate_UnpricedComponentSkips(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(WithClock(fixedClock()))

	res := e.Evaluate(Input{
		GateState:    domain.GateReadyForPricing,
		PurchaseCost: 10,
		Bundle:       domain.BundleClassification{Type: domain.BundleQuantity, Confidence: 0.9},
		Components: []domain.BundleComponent{
			{Name: "Hantelscheibe 5kg", Quantity: 2, ResalePrice: 7.5, PriceSource: domain.SourceMarketMedian},
			{Name: "Hantelstange", Quantity: 1},
		},
	})

	assert.Equal(t, domain.StrategySkip, res.Strategy)
	assert.Equal(t, domain.SkipUnpricedComponent, res.SkipReason)
	assert.Zero(t, res.TotalResale, "partially priced bundles must not accrue totals")
}

func TestEvaluate_UnresolvedBundleSkips(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(WithClock(fixedClock()))

	for _, bundle := range []domain.BundleClassification{
		{Type: domain.BundleWeightOrMeasure, NeedsEnrichment: true},
		{Type: domain.BundleUnknown, NeedsEnrichment: true},
	} {
		res := e.Evaluate(Input{
			GateState: domain.GateSkipped,
			Bundle:    bundle,
		})
		assert.Equal(t, domain.StrategySkip, res.Strategy)
		assert.Equal(t, domain.SkipUnresolvedBundle, res.SkipReason)
	}
}

func TestEvaluate_NoComponentsSkips(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(WithClock(fixedClock()))

	res := e.Evaluate(Input{
		GateState: domain.GateReadyForPricing,
		Bundle:    domain.BundleClassification{Type: domain.BundleSingleItem},
	})

	assert.Equal(t, domain.StrategySkip, res.Strategy)
	assert.Equal(t, domain.SkipNoPriceData, res.SkipReason)
}

func TestEvaluate_StampsClock(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(WithClock(fixedClock()))
	res := e.Evaluate(Input{GateState: domain.GateSkipped})

	assert.Equal(t, fixedClock()(), res.EvaluatedAt)
}
