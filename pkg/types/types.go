// Package domain defines the core business types for flipradar.
package domain

import (
	"encoding/json"
	"time"
)

// BundleType classifies what a listing actually offers.
type BundleType string

// Bundle type constants.
const (
	BundleSingleItem      BundleType = "single_item"
	BundleQuantity        BundleType = "quantity_bundle"
	BundleWeightOrMeasure BundleType = "weight_or_measure_bundle"
	BundleUnknown         BundleType = "unknown"
)

// NumericKind says what a number embedded in a title denotes.
type NumericKind string

// Numeric token kinds.
const (
	NumericQuantity NumericKind = "quantity"
	NumericMeasure  NumericKind = "measure"
	NumericUnknown  NumericKind = "unknown"
)

// GateState is the per-listing decision gate state.
type GateState string

// Gate states. ReadyForPricing and Skipped are terminal.
const (
	GateInitial         GateState = "initial"
	GateNeedsEnrichment GateState = "needs_enrichment"
	GateEnriched        GateState = "enriched"
	GateReadyForPricing GateState = "ready_for_pricing"
	GateSkipped         GateState = "skipped"
)

// Terminal reports whether no further transition is possible.
func (g GateState) Terminal() bool {
	return g == GateReadyForPricing || g == GateSkipped
}

// PriceOrigin tags where a single price observation came from.
type PriceOrigin string

// Price observation origins.
const (
	OriginMarketCompetitor PriceOrigin = "market_competitor"
	OriginPriceOracle      PriceOrigin = "price_oracle"
	OriginFallback         PriceOrigin = "fallback"
)

// PriceSource tags how an aggregated price was derived.
type PriceSource string

// Price sources, ordered from most to least trustworthy.
const (
	SourceMarketMedian      PriceSource = "market_median"
	SourceMarketSingle      PriceSource = "market_single"
	SourceOracleEstimate    PriceSource = "oracle_estimate"
	SourceFallbackHeuristic PriceSource = "fallback_heuristic"
	SourceNone              PriceSource = "none"
)

// Strategy is the final buy/skip decision for a listing.
type Strategy string

// Strategies.
const (
	StrategyBuy  Strategy = "buy"
	StrategySkip Strategy = "skip"
)

// Skip reasons recorded on evaluation results. A listing is never
// silently zero-priced; every skip carries one of these.
const (
	SkipUnresolvedBundle  = "unresolved_bundle"
	SkipUnpricedComponent = "unpriced_component"
	SkipNoPriceData       = "no_price_data"
	SkipBudgetExhausted   = "budget_exhausted"
	SkipBelowMargin       = "below_margin"
)

// RawListing is one scraped auction/classifieds entry. Immutable once
// scraped; everything derived from it is recomputed, never patched in.
type RawListing struct {
	ID           string     `json:"listing_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	URL          string     `json:"url"`
	ImageURL     string     `json:"image_url,omitempty"`
	CurrentPrice float64    `json:"current_price"`
	BuyNowPrice  *float64   `json:"buy_now_price,omitempty"`
	Currency     string     `json:"currency"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	CategoryHint string     `json:"category_hint,omitempty"`
}

// ListingDetail is the enrichment payload fetched from a listing's
// detail page.
type ListingDetail struct {
	Description  string   `json:"description"`
	Images       []string `json:"images,omitempty"`
	ShippingCost *float64 `json:"shipping_cost,omitempty"`
	SellerRating *float64 `json:"seller_rating,omitempty"`
}

// QuantityInterpretation is the reading of one numeric token in a title.
// A measure value must never be treated as a piece count; only
// NumericQuantity interpretations multiply item count.
type QuantityInterpretation struct {
	RawNumber  float64     `json:"raw_number"`
	Unit       string      `json:"unit"`
	Kind       NumericKind `json:"interpreted_as"`
	Confidence float64     `json:"confidence"`
}

// BundleClassification is the outcome of bundle-type classification.
// BundleWeightOrMeasure and BundleUnknown always require enrichment;
// neither may be priced from the title alone.
type BundleClassification struct {
	Type            BundleType        `json:"bundle_type"`
	Confidence      float64           `json:"confidence"`
	NeedsEnrichment bool              `json:"needs_enrichment"`
	Components      []BundleComponent `json:"components,omitempty"`
}

// BundleComponent is one sub-item of a bundle. Price fields are filled
// during evaluation; classification only resolves name, quantity and
// unit spec. Owned by its parent listing's evaluation result.
type BundleComponent struct {
	Name        string      `json:"name"`
	Quantity    int         `json:"quantity"`
	UnitSpec    string      `json:"unit_spec,omitempty"`
	NewPrice    float64     `json:"estimated_new_price,omitempty"`
	ResalePrice float64     `json:"estimated_resale_price,omitempty"`
	PriceSource PriceSource `json:"price_source,omitempty"`
}

// ProductIdentity is the canonical, price-relevant representation of
// what a listing sells. KeySpecs holds only price-relevant attributes;
// size, color and cosmetic condition are filtered out before
// construction. Never mutated after creation: re-derive, don't patch.
type ProductIdentity struct {
	Brand    string            `json:"brand"`
	Model    string            `json:"model"`
	Category string            `json:"category"`
	KeySpecs map[string]string `json:"key_specs,omitempty"`
}

// PriceObservation is one price data point for an identity, discarded
// at end of run once aggregated.
type PriceObservation struct {
	Amount float64     `json:"amount"`
	Origin PriceOrigin `json:"origin"`
	Source string      `json:"source"`
}

// AggregatedPrice is the result of aggregating observations for one
// identity. SourceMarketMedian requires SampleSize >= 2;
// SourceMarketSingle requires SampleSize == 1.
type AggregatedPrice struct {
	Amount     float64     `json:"amount"`
	Source     PriceSource `json:"price_source"`
	SampleSize int         `json:"sample_size"`
}

// PriceEstimate is the final per-identity price result for a run:
// new-retail and resale aggregated independently.
type PriceEstimate struct {
	New    AggregatedPrice `json:"new"`
	Resale AggregatedPrice `json:"resale"`
}

// Priced reports whether the estimate carries a usable new price.
func (e *PriceEstimate) Priced() bool {
	return e.New.Source != SourceNone && e.New.Source != "" && e.New.Amount > 0
}

// EvaluationResult is the final verdict for one listing.
type EvaluationResult struct {
	ListingID      string            `json:"listing_id"`
	IdentityKey    string            `json:"identity_key,omitempty"`
	BundleType     BundleType        `json:"bundle_type"`
	Components     []BundleComponent `json:"components,omitempty"`
	TotalNew       float64           `json:"total_new_price"`
	TotalResale    float64           `json:"total_resale_price"`
	PurchaseCost   float64           `json:"purchase_cost"`
	Fees           float64           `json:"fees"`
	ExpectedProfit float64           `json:"expected_profit"`
	Strategy       Strategy          `json:"strategy"`
	SkipReason     string            `json:"skip_reason,omitempty"`
	EvaluatedAt    time.Time         `json:"evaluated_at"`
}

// Listing is the persisted view of a raw listing plus everything a run
// derived from it.
type Listing struct {
	ID       string `json:"id"        db:"id"`
	SourceID string `json:"source_id" db:"source_id"`
	Title    string `json:"title"     db:"title"`
	ItemURL  string `json:"item_url"  db:"item_url"`
	ImageURL string `json:"image_url,omitempty" db:"image_url"`

	// Pricing as listed
	CurrentPrice float64  `json:"current_price"           db:"current_price"`
	BuyNowPrice  *float64 `json:"buy_now_price,omitempty" db:"buy_now_price"`
	Currency     string   `json:"currency"                db:"currency"`

	Description  string     `json:"description,omitempty"   db:"description"`
	CategoryHint string     `json:"category_hint,omitempty" db:"category_hint"`
	EndTime      *time.Time `json:"end_time,omitempty"      db:"end_time"`

	// Derived data
	NormalizedTitle  string     `json:"normalized_title,omitempty" db:"normalized_title"`
	BundleType       BundleType `json:"bundle_type,omitempty"      db:"bundle_type"`
	BundleConfidence float64    `json:"bundle_confidence"          db:"bundle_confidence"`
	IdentityKey      string     `json:"identity_key,omitempty"     db:"identity_key"`
	GateState        GateState  `json:"gate_state,omitempty"       db:"gate_state"`

	// Evaluation
	Strategy       Strategy        `json:"strategy,omitempty"        db:"strategy"`
	SkipReason     string          `json:"skip_reason,omitempty"     db:"skip_reason"`
	TotalNew       *float64        `json:"total_new,omitempty"       db:"total_new"`
	TotalResale    *float64        `json:"total_resale,omitempty"    db:"total_resale"`
	ExpectedProfit *float64        `json:"expected_profit,omitempty" db:"expected_profit"`
	Components     json.RawMessage `json:"components,omitempty"      db:"components"`

	// Timestamps
	FirstSeenAt time.Time `json:"first_seen_at" db:"first_seen_at"`
	UpdatedAt   time.Time `json:"updated_at"    db:"updated_at"`
}

// PurchaseCost is what buying the listing would actually cost: the
// buy-now price when present, otherwise the current bid.
func (l *Listing) PurchaseCost() float64 {
	if l.BuyNowPrice != nil && *l.BuyNowPrice > 0 {
		return *l.BuyNowPrice
	}
	return l.CurrentPrice
}

// Raw reconstructs the immutable scraped view of the listing.
func (l *Listing) Raw() RawListing {
	return RawListing{
		ID:           l.SourceID,
		Title:        l.Title,
		Description:  l.Description,
		URL:          l.ItemURL,
		ImageURL:     l.ImageURL,
		CurrentPrice: l.CurrentPrice,
		BuyNowPrice:  l.BuyNowPrice,
		Currency:     l.Currency,
		EndTime:      l.EndTime,
		CategoryHint: l.CategoryHint,
	}
}

// JobRun records a single execution of a pipeline run or scheduled job.
type JobRun struct {
	ID           string     `json:"id"                      db:"id"`
	JobName      string     `json:"job_name"                db:"job_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected *int       `json:"rows_affected,omitempty" db:"rows_affected"`
}

// SystemState holds a snapshot of aggregate pipeline metrics.
type SystemState struct {
	ListingsTotal      int `json:"listings_total"      db:"listings_total"`
	ListingsBuy        int `json:"listings_buy"        db:"listings_buy"`
	ListingsSkipped    int `json:"listings_skipped"    db:"listings_skipped"`
	ListingsUnresolved int `json:"listings_unresolved" db:"listings_unresolved"`
	IdentitiesTotal    int `json:"identities_total"    db:"identities_total"`
}
