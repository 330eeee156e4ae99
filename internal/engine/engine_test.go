package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbaumgartner/flipradar/internal/budget"
	"github.com/mbaumgartner/flipradar/internal/cache"
	"github.com/mbaumgartner/flipradar/internal/notify"
	"github.com/mbaumgartner/flipradar/internal/oracle"
	"github.com/mbaumgartner/flipradar/internal/store"
	"github.com/mbaumgartner/flipradar/pkg/logger"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	mu          sync.Mutex
	listings    map[string]*domain.Listing // by internal ID
	evaluations map[string]*domain.EvaluationResult
	jobStatus   string
	jobRows     int
	nextID      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings:    make(map[string]*domain.Listing),
		evaluations: make(map[string]*domain.EvaluationResult),
	}
}

func (f *fakeStore) UpsertListing(_ context.Context, l *domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.listings {
		if existing.SourceID == l.SourceID {
			l.ID = existing.ID
			f.listings[l.ID] = l
			return nil
		}
	}
	f.nextID++
	l.ID = fmt.Sprintf("id-%d", f.nextID)
	l.FirstSeenAt = time.Now()
	f.listings[l.ID] = l
	return nil
}

func (f *fakeStore) GetListing(_ context.Context, sourceID string) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.SourceID == sourceID {
			return l, nil
		}
	}
	return nil, fmt.Errorf("listing %s not found", sourceID)
}

func (f *fakeStore) GetListingByID(_ context.Context, id string) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s not found", id)
	}
	return l, nil
}

func (f *fakeStore) ListListings(_ context.Context, _ *store.ListingQuery) ([]domain.Listing, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Listing
	for _, l := range f.listings {
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateListingDerived(
	_ context.Context,
	id, normalizedTitle string,
	bundleType domain.BundleType,
	bundleConfidence float64,
	identityKey string,
	gateState domain.GateState,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return fmt.Errorf("listing %s not found", id)
	}
	l.NormalizedTitle = normalizedTitle
	l.BundleType = bundleType
	l.BundleConfidence = bundleConfidence
	l.IdentityKey = identityKey
	l.GateState = gateState
	return nil
}

func (f *fakeStore) UpdateListingEvaluation(_ context.Context, id string, res *domain.EvaluationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluations[id] = res
	if l, ok := f.listings[id]; ok {
		l.Strategy = res.Strategy
		l.SkipReason = res.SkipReason
	}
	return nil
}

func (f *fakeStore) UpdateListingDescription(_ context.Context, id, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.listings[id]; ok {
		l.Description = description
	}
	return nil
}

func (f *fakeStore) ListListingsByGateState(_ context.Context, state domain.GateState, _ int) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Listing
	for _, l := range f.listings {
		if l.GateState == state {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertJobRun(_ context.Context, _ string) (string, error) {
	return "run-1", nil
}

func (f *fakeStore) CompleteJobRun(_ context.Context, _ string, status string, _ string, rows int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatus = status
	f.jobRows = rows
	return nil
}

func (f *fakeStore) ListJobRuns(_ context.Context, _ string, _ int) ([]domain.JobRun, error) {
	return nil, nil
}

func (f *fakeStore) ListLatestJobRuns(_ context.Context) ([]domain.JobRun, error) {
	return nil, nil
}

func (f *fakeStore) GetSystemState(_ context.Context) (*domain.SystemState, error) {
	return &domain.SystemState{}, nil
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Ping(_ context.Context) error    { return nil }

var _ store.Store = (*fakeStore)(nil)

// fakeMarket serves canned search results and competitor prices,
// counting competitor lookups per query.
type fakeMarket struct {
	results         map[string][]domain.RawListing
	detail          domain.ListingDetail
	detailErr       error
	competitors     map[string][]float64
	competitorCalls map[string]int
}

func (f *fakeMarket) Search(_ context.Context, query string) ([]domain.RawListing, error) {
	return f.results[query], nil
}

func (f *fakeMarket) FetchDetail(_ context.Context, _ string) (domain.ListingDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeMarket) SearchCompetitors(_ context.Context, title string) ([]domain.PriceObservation, error) {
	if f.competitorCalls == nil {
		f.competitorCalls = make(map[string]int)
	}
	f.competitorCalls[title]++

	var obs []domain.PriceObservation
	for _, amount := range f.competitors[title] {
		obs = append(obs, domain.PriceObservation{
			Amount: amount,
			Origin: domain.OriginMarketCompetitor,
			Source: "test",
		})
	}
	return obs, nil
}

// fakeOracle answers decomposition and batched price queries with
// canned data, recording every batch it receives.
type fakeOracle struct {
	components   []domain.BundleComponent
	decomposeErr error
	decomposes   int
	quote        oracle.PriceQuote
	queryErr     error
	batches      int
	lastBatch    []oracle.PriceQuery
}

func (f *fakeOracle) QueryPrices(_ context.Context, queries []oracle.PriceQuery) (map[string]oracle.PriceQuote, error) {
	f.batches++
	f.lastBatch = queries
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	quotes := make(map[string]oracle.PriceQuote, len(queries))
	for _, q := range queries {
		quotes[q.Key] = f.quote
	}
	return quotes, nil
}

func (f *fakeOracle) DecomposeBundle(_ context.Context, _, _ string) ([]domain.BundleComponent, error) {
	f.decomposes++
	return f.components, f.decomposeErr
}

// fakeNotifier records sent alerts.
type fakeNotifier struct {
	alerts []notify.BuyAlert
}

func (f *fakeNotifier) SendAlert(_ context.Context, a *notify.BuyAlert) error {
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *fakeNotifier) SendBatchAlert(_ context.Context, alerts []notify.BuyAlert) error {
	f.alerts = append(f.alerts, alerts...)
	return nil
}

func newTestEngine(s store.Store, m *fakeMarket, o *fakeOracle, n *fakeNotifier, queries ...string) *Engine {
	return NewEngine(s, m, o, cache.NewMemoryCache(time.Hour), n,
		WithLogger(logger.Nop()),
		WithSearchQueries(queries),
		WithStaggerOffset(0),
	)
}

func rawListing(id, title string, price float64, category string) domain.RawListing {
	return domain.RawListing{
		ID:           id,
		Title:        title,
		URL:          "https://markt.example.ch/listing/" + id,
		CurrentPrice: price,
		Currency:     "CHF",
		CategoryHint: category,
	}
}

func TestRunScan_SingleItemBuy(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"kopfhörer": {rawListing("l1", "Bose QuietComfort Kopfhörer schwarz", 45, "elektronik")},
		},
		competitors: map[string][]float64{
			"Bose QuietComfort Kopfhörer": {120, 130, 125},
		},
	}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, &fakeOracle{}, n, "kopfhörer")
	require.NoError(t, eng.RunScan(context.Background()))

	l, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.GateReadyForPricing, l.GateState)
	assert.Equal(t, domain.BundleSingleItem, l.BundleType)

	res := s.evaluations[l.ID]
	require.NotNil(t, res)
	assert.Equal(t, domain.StrategyBuy, res.Strategy)
	// median 125, fees 12.50, cost 45 → profit 67.50
	assert.InDelta(t, 125.0, res.TotalResale, 0.01)
	assert.InDelta(t, 67.5, res.ExpectedProfit, 0.01)

	require.Len(t, n.alerts, 1)
	assert.Contains(t, n.alerts[0].ListingTitle, "Bose")
	assert.Equal(t, "success", s.jobStatus)
	assert.Equal(t, 1, s.jobRows)
}

func TestRunScan_BundleEnrichedAndBought(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"hantel": {rawListing("l1", "30kg Hantelset", 10, "sport")},
		},
		detail: domain.ListingDetail{Description: "4 Scheiben à 5kg, Stange und Verschlüsse"},
		competitors: map[string][]float64{
			"Hantelscheibe 5kg": {7, 8},
		},
	}
	o := &fakeOracle{
		components: []domain.BundleComponent{
			{Name: "Hantelscheibe 5kg", Quantity: 4, UnitSpec: "5kg"},
		},
	}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "hantel")
	require.NoError(t, eng.RunScan(context.Background()))

	l, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.GateReadyForPricing, l.GateState)
	assert.Equal(t, "4 Scheiben à 5kg, Stange und Verschlüsse", l.Description)

	res := s.evaluations[l.ID]
	require.NotNil(t, res)
	assert.Equal(t, domain.StrategyBuy, res.Strategy)
	// 4 × median(7,8)=7.50 → 30 resale, 3 fees, 10 cost → 17 profit
	assert.InDelta(t, 30.0, res.TotalResale, 0.01)
	assert.InDelta(t, 17.0, res.ExpectedProfit, 0.01)
	require.Len(t, res.Components, 1)
	assert.Equal(t, 4, res.Components[0].Quantity)
	assert.Equal(t, domain.SourceMarketMedian, res.Components[0].PriceSource)
}

func TestRunScan_UnresolvedBundleSkipped(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"konvolut": {rawListing("l1", "Konvolut Kellerfund", 20, "")},
		},
		detail: domain.ListingDetail{Description: "alles mögliche"},
	}
	o := &fakeOracle{components: nil} // composition stays unknown
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "konvolut")
	require.NoError(t, eng.RunScan(context.Background()))

	l, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.GateSkipped, l.GateState)

	res := s.evaluations[l.ID]
	require.NotNil(t, res)
	assert.Equal(t, domain.StrategySkip, res.Strategy)
	assert.Equal(t, domain.SkipUnresolvedBundle, res.SkipReason)
	assert.Empty(t, n.alerts)
}

func TestRunScan_SharedIdentityBothEvaluated(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"hemd": {
				rawListing("l1", "Tommy Hilfiger Hemd Gr. M", 10, "kleidung"),
				rawListing("l2", "Tommy Hilfiger Hemd Grösse L", 12, "kleidung"),
			},
		},
		competitors: map[string][]float64{
			"Tommy Hilfiger Hemd": {40, 44},
		},
	}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, &fakeOracle{}, n, "hemd")
	require.NoError(t, eng.RunScan(context.Background()))

	l1, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	l2, err := s.GetListing(context.Background(), "l2")
	require.NoError(t, err)

	// Size variants collapse onto one identity: one price lookup
	// serves both, and both still get their own verdict.
	assert.Equal(t, l1.IdentityKey, l2.IdentityKey)
	assert.Equal(t, 1, m.competitorCalls["Tommy Hilfiger Hemd"])

	res1 := s.evaluations[l1.ID]
	res2 := s.evaluations[l2.ID]
	require.NotNil(t, res1)
	require.NotNil(t, res2)
	assert.Equal(t, domain.StrategyBuy, res1.Strategy)
	assert.Equal(t, domain.StrategyBuy, res2.Strategy)
	// median 42, fees 4.20 each, costs 10 and 12
	assert.InDelta(t, 27.8, res1.ExpectedProfit, 0.01)
	assert.InDelta(t, 25.8, res2.ExpectedProfit, 0.01)

	assert.Len(t, n.alerts, 2)
	assert.Equal(t, 2, s.jobRows)
}

func TestRunScan_OracleBudgetExhausted(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"hantel": {rawListing("l1", "30kg Hantelset", 10, "sport")},
		},
		detail: domain.ListingDetail{Description: "4 Scheiben à 5kg, Stange und Verschlüsse"},
		// no competitors at all
		competitors: map[string][]float64{},
	}
	o := &fakeOracle{
		components: []domain.BundleComponent{
			{Name: "Hantelscheibe 5kg", Quantity: 4, UnitSpec: "5kg"},
		},
		queryErr: budget.ErrBudgetExhausted,
	}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "hantel")
	require.NoError(t, eng.RunScan(context.Background()))

	l, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)

	res := s.evaluations[l.ID]
	require.NotNil(t, res)
	assert.Equal(t, domain.StrategySkip, res.Strategy)
	assert.Equal(t, domain.SkipBudgetExhausted, res.SkipReason)
	assert.Empty(t, n.alerts)
}

func TestRunScan_OracleEstimateFallback(t *testing.T) {
	t.Parallel()

	resale := 80.0
	newPrice := 200.0

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"exot": {rawListing("l1", "Seltene Vintage Schreibmaschine", 30, "")},
		},
		competitors: map[string][]float64{},
	}
	o := &fakeOracle{quote: oracle.PriceQuote{
		NewPrice:    &newPrice,
		ResalePrice: &resale,
		Confidence:  0.6,
	}}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "exot")
	require.NoError(t, eng.RunScan(context.Background()))

	l, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)

	res := s.evaluations[l.ID]
	require.NotNil(t, res)
	require.Len(t, res.Components, 1)
	assert.Equal(t, domain.SourceOracleEstimate, res.Components[0].PriceSource)
	assert.InDelta(t, 80.0, res.TotalResale, 0.01)
	// 80 - 30 - 8 fees = 42
	assert.Equal(t, domain.StrategyBuy, res.Strategy)
	assert.InDelta(t, 42.0, res.ExpectedProfit, 0.01)
}

func TestRunScan_CacheShortCircuitsSecondRun(t *testing.T) {
	t.Parallel()

	resale := 80.0

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"exot": {rawListing("l1", "Seltene Vintage Schreibmaschine", 30, "")},
		},
		competitors: map[string][]float64{},
	}
	o := &fakeOracle{quote: oracle.PriceQuote{ResalePrice: &resale, Confidence: 0.6}}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "exot")
	require.NoError(t, eng.RunScan(context.Background()))
	require.NoError(t, eng.RunScan(context.Background()))

	assert.Equal(t, 1, o.batches, "second run must hit the cache, not the oracle")
}

func TestRunScan_OracleToppedUpOnThinMarketData(t *testing.T) {
	t.Parallel()

	resale := 120.0

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"exot": {rawListing("l1", "Seltene Vintage Schreibmaschine", 20, "")},
		},
		// a single market observation is unverified on its own
		competitors: map[string][]float64{
			"Seltene Vintage Schreibmaschine": {100},
		},
	}
	o := &fakeOracle{quote: oracle.PriceQuote{ResalePrice: &resale, Confidence: 0.6}}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "exot")
	require.NoError(t, eng.RunScan(context.Background()))

	l, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)

	res := s.evaluations[l.ID]
	require.NotNil(t, res)
	require.Len(t, res.Components, 1)

	// The oracle quote joins the market observation instead of
	// replacing it: median of 100 and 120.
	assert.Equal(t, 1, o.batches)
	assert.Equal(t, domain.SourceMarketMedian, res.Components[0].PriceSource)
	assert.InDelta(t, 110.0, res.TotalResale, 0.01)
}

func TestRunScan_OneOracleBatchPerRun(t *testing.T) {
	t.Parallel()

	resale := 80.0

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"exot": {
				rawListing("l1", "Seltene Vintage Schreibmaschine", 30, ""),
				rawListing("l2", "Antiker Sextant Messing", 40, ""),
				rawListing("l3", "Analoger Belichtungsmesser", 15, ""),
			},
		},
		competitors: map[string][]float64{},
	}
	o := &fakeOracle{quote: oracle.PriceQuote{ResalePrice: &resale, Confidence: 0.6}}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "exot")
	require.NoError(t, eng.RunScan(context.Background()))

	require.Equal(t, 1, o.batches, "all unpriced identities share one oracle request")
	assert.Len(t, o.lastBatch, 3)

	for _, sourceID := range []string{"l1", "l2", "l3"} {
		l, err := s.GetListing(context.Background(), sourceID)
		require.NoError(t, err)
		require.NotNil(t, s.evaluations[l.ID], "listing %s", sourceID)
	}
}

func TestRunScan_EnrichedDescriptionResolvedByRules(t *testing.T) {
	t.Parallel()

	s := newFakeStore()
	m := &fakeMarket{
		results: map[string][]domain.RawListing{
			"hantel": {rawListing("l1", "Hantel Set", 20, "fitness")},
		},
		detail: domain.ListingDetail{
			Description: "Inhalt: 2x 5kg Hantelscheiben + 4x 2.5kg Hantelscheiben",
		},
		competitors: map[string][]float64{
			"Hantelscheibe 5kg":   {10, 12},
			"Hantelscheibe 2.5kg": {5, 7},
		},
	}
	// A broken oracle must not matter when the description spells the
	// composition out.
	o := &fakeOracle{
		decomposeErr: fmt.Errorf("oracle down"),
		queryErr:     fmt.Errorf("oracle down"),
	}
	n := &fakeNotifier{}

	eng := newTestEngine(s, m, o, n, "hantel")
	require.NoError(t, eng.RunScan(context.Background()))

	l, err := s.GetListing(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, domain.GateReadyForPricing, l.GateState)
	assert.Equal(t, domain.BundleQuantity, l.BundleType)
	assert.Equal(t, 0, o.decomposes, "an explicit breakdown resolves without the oracle")

	res := s.evaluations[l.ID]
	require.NotNil(t, res)
	require.Len(t, res.Components, 2)
	// 2 × 11 + 4 × 6 = 46 resale, 4.60 fees, 20 cost → 21.40 profit
	assert.Equal(t, domain.StrategyBuy, res.Strategy)
	assert.InDelta(t, 46.0, res.TotalResale, 0.01)
	assert.InDelta(t, 21.4, res.ExpectedProfit, 0.01)
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	eng := NewEngine(newFakeStore(), &fakeMarket{}, &fakeOracle{}, nil, nil)
	assert.Equal(t, 30*time.Second, eng.staggerOffset)
	assert.NotNil(t, eng.log)
	assert.NotNil(t, eng.aggregator)
	assert.NotNil(t, eng.evaluator)
}
