// Package evaluate turns a priced listing into a buy/skip verdict.
// It is pure arithmetic over already-resolved components; pricing and
// enrichment happen upstream.
package evaluate

import (
	"time"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Evaluator applies the profit rule to priced listings.
type Evaluator struct {
	feeRate   float64
	minProfit float64
	now       func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithFeeRate sets the marketplace fee fraction charged on resale.
func WithFeeRate(rate float64) Option {
	return func(e *Evaluator) {
		e.feeRate = rate
	}
}

// WithMinProfit sets the profit a listing must clear, after fees, to
// be worth buying.
func WithMinProfit(chf float64) Option {
	return func(e *Evaluator) {
		e.minProfit = chf
	}
}

// WithClock overrides the evaluation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates an Evaluator with defaults: 10% resale fees and
// a CHF 10 minimum profit.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		feeRate:   0.10,
		minProfit: 10,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is one listing ready for a verdict. Components carry their
// resolved prices; a single item is a one-component bundle of itself.
type Input struct {
	ListingID    string
	IdentityKey  string
	Bundle       domain.BundleClassification
	GateState    domain.GateState
	PurchaseCost float64
	Components   []domain.BundleComponent
}

// Evaluate produces the final verdict for one listing. A listing whose
// composition or price could not be resolved is skipped with a reason,
// never priced at zero and bought by accident.
func (e *Evaluator) Evaluate(in Input) domain.EvaluationResult {
	res := domain.EvaluationResult{
		ListingID:    in.ListingID,
		IdentityKey:  in.IdentityKey,
		BundleType:   in.Bundle.Type,
		Components:   in.Components,
		PurchaseCost: in.PurchaseCost,
		EvaluatedAt:  e.now(),
	}

	if in.GateState == domain.GateSkipped || !priceable(in.Bundle) {
		return skip(res, domain.SkipUnresolvedBundle)
	}

	if len(in.Components) == 0 {
		return skip(res, domain.SkipNoPriceData)
	}

	for _, c := range in.Components {
		if c.ResalePrice <= 0 || c.PriceSource == "" || c.PriceSource == domain.SourceNone {
			return skip(res, domain.SkipUnpricedComponent)
		}
	}

	for _, c := range in.Components {
		qty := float64(c.Quantity)
		if qty < 1 {
			qty = 1
		}
		res.TotalNew += c.NewPrice * qty
		res.TotalResale += c.ResalePrice * qty
	}

	res.Fees = res.TotalResale * e.feeRate
	res.ExpectedProfit = res.TotalResale - res.PurchaseCost - res.Fees

	if res.ExpectedProfit > e.minProfit {
		res.Strategy = domain.StrategyBuy
	} else {
		res.Strategy = domain.StrategySkip
		res.SkipReason = domain.SkipBelowMargin
	}

	return res
}

// priceable reports whether a bundle's composition is settled enough
// to attach prices to.
func priceable(b domain.BundleClassification) bool {
	if b.NeedsEnrichment {
		return false
	}
	return b.Type == domain.BundleSingleItem || b.Type == domain.BundleQuantity
}

func skip(res domain.EvaluationResult, reason string) domain.EvaluationResult {
	res.Strategy = domain.StrategySkip
	res.SkipReason = reason
	return res
}
