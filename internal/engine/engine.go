// Package engine orchestrates the flipradar pipeline: scan the
// marketplace, classify what each listing actually sells, enrich
// unresolved bundles once, price the components, and turn the result
// into a buy or skip verdict.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbaumgartner/flipradar/internal/cache"
	"github.com/mbaumgartner/flipradar/internal/market"
	"github.com/mbaumgartner/flipradar/internal/metrics"
	"github.com/mbaumgartner/flipradar/internal/notify"
	"github.com/mbaumgartner/flipradar/internal/oracle"
	"github.com/mbaumgartner/flipradar/internal/store"
	"github.com/mbaumgartner/flipradar/pkg/evaluate"
	"github.com/mbaumgartner/flipradar/pkg/extract"
	"github.com/mbaumgartner/flipradar/pkg/pricing"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

const scanJobName = "scan"

// Engine orchestrates scanning, classification, pricing, and alerting.
type Engine struct {
	store    store.Store
	market   market.Client
	oracle   oracle.Estimator
	cache    cache.PriceCache
	notifier notify.Notifier
	log      *slog.Logger

	aggregator    *pricing.Aggregator
	evaluator     *evaluate.Evaluator
	queries       []string
	staggerOffset time.Duration
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	s store.Store,
	m market.Client,
	o oracle.Estimator,
	c cache.PriceCache,
	n notify.Notifier,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:         s,
		market:        m,
		oracle:        o,
		cache:         c,
		notifier:      n,
		log:           slog.Default(),
		aggregator:    pricing.NewAggregator(),
		evaluator:     evaluate.NewEvaluator(),
		staggerOffset: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithSearchQueries sets the marketplace queries scanned each cycle.
func WithSearchQueries(queries []string) EngineOption {
	return func(e *Engine) {
		e.queries = queries
	}
}

// WithStaggerOffset sets the delay between processing each search query.
func WithStaggerOffset(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.staggerOffset = d
	}
}

// WithAggregator sets a custom price aggregator.
func WithAggregator(a *pricing.Aggregator) EngineOption {
	return func(e *Engine) {
		e.aggregator = a
	}
}

// WithEvaluator sets a custom evaluator.
func WithEvaluator(ev *evaluate.Evaluator) EngineOption {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// pendingListing carries one listing's per-run derived state between
// pipeline stages. Derived data is recomputed every run, never read
// back from a previous one.
type pendingListing struct {
	listing         *domain.Listing
	normalized      string
	classification  domain.BundleClassification
	identityKey     string
	gateState       domain.GateState
	budgetExhausted bool
}

// components returns what needs pricing: the classified components, or
// the single item treated as a one-component bundle of itself.
func (p *pendingListing) components() []domain.BundleComponent {
	if len(p.classification.Components) == 0 &&
		p.classification.Type == domain.BundleSingleItem {
		return []domain.BundleComponent{{Name: p.normalized, Quantity: 1}}
	}
	return p.classification.Components
}

// RunScan executes the full pipeline for all configured search queries.
func (eng *Engine) RunScan(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	runID, err := eng.store.InsertJobRun(ctx, scanJobName)
	if err != nil {
		eng.log.Error("recording job run failed", "error", err)
	}

	pending, scanErr := eng.scanQueries(ctx)

	eng.enrichPending(ctx, pending)
	evaluated := eng.evaluatePending(ctx, pending)

	status := "success"
	errText := ""
	if scanErr != nil {
		status = "failed"
		errText = scanErr.Error()
	}
	if runID != "" {
		if err := eng.store.CompleteJobRun(ctx, runID, status, errText, evaluated); err != nil {
			eng.log.Error("completing job run failed", "error", err)
		}
	}

	return scanErr
}

// scanQueries searches the marketplace for every configured query,
// persists what it finds, and classifies each listing from its title.
func (eng *Engine) scanQueries(ctx context.Context) ([]*pendingListing, error) {
	var pending []*pendingListing

	for i, query := range eng.queries {
		if ctx.Err() != nil {
			return pending, ctx.Err()
		}

		eng.log.Info("scanning query", "query", query)

		raws, err := eng.market.Search(ctx, query)
		if err != nil {
			eng.log.Error("search failed", "query", query, "error", err)
			metrics.ScanErrorsTotal.Inc()
			continue
		}

		for j := range raws {
			p, ingestErr := eng.ingestListing(ctx, &raws[j])
			if ingestErr != nil {
				eng.log.Error("ingest failed", "source_id", raws[j].ID, "error", ingestErr)
				metrics.ScanErrorsTotal.Inc()
				continue
			}
			pending = append(pending, p)
		}

		// Stagger between queries to avoid marketplace bursts.
		if i < len(eng.queries)-1 && eng.staggerOffset > 0 {
			select {
			case <-ctx.Done():
				return pending, ctx.Err()
			case <-time.After(eng.staggerOffset):
			}
		}
	}

	return pending, nil
}

func (eng *Engine) ingestListing(ctx context.Context, raw *domain.RawListing) (*pendingListing, error) {
	l := toListing(raw)
	if err := eng.store.UpsertListing(ctx, l); err != nil {
		return nil, fmt.Errorf("upserting listing: %w", err)
	}

	metrics.ScanListingsTotal.Inc()

	p := eng.classify(l)

	if err := eng.storeDerived(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// classify derives bundle type and gate state from the scraped data:
// the title, plus whatever description the search page already had.
func (eng *Engine) classify(l *domain.Listing) *pendingListing {
	normalized := extract.Normalize(l.Title, l.CategoryHint)
	interps := extract.ClassifyNumericTokens(normalized)
	classification := extract.ClassifyBundle(normalized, l.Description, interps)

	metrics.BundleClassificationsTotal.
		WithLabelValues(string(classification.Type)).Inc()

	state, _ := extract.AdvanceGate(domain.GateInitial, classification)

	p := &pendingListing{
		listing:        l,
		normalized:     normalized,
		classification: classification,
		gateState:      state,
	}

	if state == domain.GateReadyForPricing {
		p.identityKey = extract.IdentityKey(extract.BuildIdentity(normalized, l.CategoryHint))
	}

	return p
}

func (eng *Engine) storeDerived(ctx context.Context, p *pendingListing) error {
	err := eng.store.UpdateListingDerived(ctx, p.listing.ID,
		p.normalized,
		p.classification.Type,
		p.classification.Confidence,
		p.identityKey,
		p.gateState,
	)
	if err != nil {
		return fmt.Errorf("updating derived fields: %w", err)
	}

	p.listing.NormalizedTitle = p.normalized
	p.listing.BundleType = p.classification.Type
	p.listing.BundleConfidence = p.classification.Confidence
	p.listing.IdentityKey = p.identityKey
	p.listing.GateState = p.gateState

	return nil
}

// toListing converts a scraped listing to its persisted form.
func toListing(raw *domain.RawListing) *domain.Listing {
	return &domain.Listing{
		SourceID:     raw.ID,
		Title:        raw.Title,
		ItemURL:      raw.URL,
		ImageURL:     raw.ImageURL,
		CurrentPrice: raw.CurrentPrice,
		BuyNowPrice:  raw.BuyNowPrice,
		Currency:     raw.Currency,
		Description:  raw.Description,
		CategoryHint: raw.CategoryHint,
		EndTime:      raw.EndTime,
	}
}
