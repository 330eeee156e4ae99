//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mbaumgartner/flipradar/internal/store"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

func setupPostgres(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("flipradar_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, connStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	require.NoError(t, s.Migrate(ctx))

	return s
}

func testListing() *domain.Listing {
	end := time.Now().Add(48 * time.Hour).Truncate(time.Microsecond)
	return &domain.Listing{
		SourceID:     "123456789",
		Title:        "Bose QuietComfort 45 Kopfhörer",
		ItemURL:      "https://markt.example.ch/listing/123456789",
		ImageURL:     "https://img.example.ch/123456789.jpg",
		CurrentPrice: 45.0,
		Currency:     "CHF",
		CategoryHint: "audio",
		EndTime:      &end,
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	s := setupPostgres(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestPostgresStore_UpsertListing(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	t.Run("insert new listing", func(t *testing.T) {
		l := testListing()
		err := s.UpsertListing(ctx, l)
		require.NoError(t, err)
		assert.NotEmpty(t, l.ID)
		assert.False(t, l.FirstSeenAt.IsZero())
		assert.False(t, l.UpdatedAt.IsZero())
	})

	t.Run("upsert with changed price", func(t *testing.T) {
		l := testListing()
		l.SourceID = "upsert-test-1"
		err := s.UpsertListing(ctx, l)
		require.NoError(t, err)
		firstID := l.ID
		firstSeen := l.FirstSeenAt

		// Update with new price.
		l2 := testListing()
		l2.SourceID = "upsert-test-1"
		l2.CurrentPrice = 39.0
		err = s.UpsertListing(ctx, l2)
		require.NoError(t, err)

		// Same ID, same first_seen_at, but updated price.
		assert.Equal(t, firstID, l2.ID)
		assert.Equal(t, firstSeen, l2.FirstSeenAt)

		got, err := s.GetListing(ctx, "upsert-test-1")
		require.NoError(t, err)
		assert.InDelta(t, 39.0, got.CurrentPrice, 0.01)
	})

	t.Run("upsert does not wipe derived fields", func(t *testing.T) {
		l := testListing()
		l.SourceID = "upsert-test-2"
		require.NoError(t, s.UpsertListing(ctx, l))

		err := s.UpdateListingDerived(ctx, l.ID,
			"bose quietcomfort 45 kopfhörer",
			domain.BundleSingleItem, 0.8,
			"bose:quietcomfort_45:audio",
			domain.GateReadyForPricing,
		)
		require.NoError(t, err)

		// Re-scan the same listing.
		l2 := testListing()
		l2.SourceID = "upsert-test-2"
		require.NoError(t, s.UpsertListing(ctx, l2))

		got, err := s.GetListing(ctx, "upsert-test-2")
		require.NoError(t, err)
		assert.Equal(t, "bose:quietcomfort_45:audio", got.IdentityKey)
		assert.Equal(t, domain.GateReadyForPricing, got.GateState)
	})
}

func TestPostgresStore_GetListing(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		l := testListing()
		l.SourceID = "get-test-1"
		require.NoError(t, s.UpsertListing(ctx, l))

		got, err := s.GetListing(ctx, "get-test-1")
		require.NoError(t, err)
		assert.Equal(t, l.ID, got.ID)
		assert.Equal(t, "Bose QuietComfort 45 Kopfhörer", got.Title)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetListing(ctx, "nonexistent")
		assert.Error(t, err)
	})
}

func TestPostgresStore_UpdateListingDerived(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	l := testListing()
	l.SourceID = "derived-test-1"
	require.NoError(t, s.UpsertListing(ctx, l))

	err := s.UpdateListingDerived(ctx, l.ID,
		"hantelscheiben 4x5kg",
		domain.BundleQuantity, 0.9,
		"unknown:hantelscheibe_5kg:sport",
		domain.GateReadyForPricing,
	)
	require.NoError(t, err)

	got, err := s.GetListingByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "hantelscheiben 4x5kg", got.NormalizedTitle)
	assert.Equal(t, domain.BundleQuantity, got.BundleType)
	assert.InDelta(t, 0.9, got.BundleConfidence, 0.01)
	assert.Equal(t, domain.GateReadyForPricing, got.GateState)
}

func TestPostgresStore_UpdateListingEvaluation(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	l := testListing()
	l.SourceID = "eval-test-1"
	require.NoError(t, s.UpsertListing(ctx, l))

	res := &domain.EvaluationResult{
		ListingID:   l.ID,
		BundleType:  domain.BundleQuantity,
		TotalNew:    60,
		TotalResale: 30,
		Components: []domain.BundleComponent{
			{Name: "Hantelscheibe 5kg", Quantity: 4, UnitSpec: "5kg", ResalePrice: 7.5, PriceSource: domain.SourceMarketMedian},
		},
		ExpectedProfit: 18,
		Strategy:       domain.StrategyBuy,
	}
	require.NoError(t, s.UpdateListingEvaluation(ctx, l.ID, res))

	got, err := s.GetListingByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyBuy, got.Strategy)
	require.NotNil(t, got.ExpectedProfit)
	assert.InDelta(t, 18, *got.ExpectedProfit, 0.01)
	assert.Contains(t, string(got.Components), "Hantelscheibe 5kg")
}

func TestPostgresStore_ListListingsByGateState(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	l := testListing()
	l.SourceID = "gate-queue-1"
	require.NoError(t, s.UpsertListing(ctx, l))
	require.NoError(t, s.UpdateListingDerived(ctx, l.ID,
		"30kg hantelset", domain.BundleWeightOrMeasure, 0.6, "", domain.GateNeedsEnrichment,
	))

	pending, err := s.ListListingsByGateState(ctx, domain.GateNeedsEnrichment, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "gate-queue-1", pending[0].SourceID)
}

func TestPostgresStore_ListListings(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	for i := range 5 {
		l := testListing()
		l.SourceID = "list-test-" + string(rune('a'+i))
		l.CurrentPrice = float64(40 + i*10)
		require.NoError(t, s.UpsertListing(ctx, l))
	}

	t.Run("no filters", func(t *testing.T) {
		q := &store.ListingQuery{Limit: 10}
		listings, total, err := s.ListListings(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, listings, 5)
	})

	t.Run("pagination total count is correct", func(t *testing.T) {
		q := &store.ListingQuery{Limit: 1, Offset: 4}
		listings, total, err := s.ListListings(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, listings, 1)
	})

	t.Run("order by price", func(t *testing.T) {
		q := &store.ListingQuery{OrderBy: "price", Limit: 10}
		listings, _, err := s.ListListings(ctx, q)
		require.NoError(t, err)
		require.NotEmpty(t, listings)
		assert.InDelta(t, 40.0, listings[0].CurrentPrice, 0.01)
	})
}

func TestPostgresStore_JobRunLifecycle(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	id, err := s.InsertJobRun(ctx, "scan")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, s.CompleteJobRun(ctx, id, "success", "", 42))

	runs, err := s.ListJobRuns(ctx, "scan", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Status)
	require.NotNil(t, runs[0].RowsAffected)
	assert.Equal(t, 42, *runs[0].RowsAffected)
	assert.NotNil(t, runs[0].CompletedAt)

	latest, err := s.ListLatestJobRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

func TestPostgresStore_GetSystemState(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	l := testListing()
	l.SourceID = "state-test-1"
	require.NoError(t, s.UpsertListing(ctx, l))
	require.NoError(t, s.UpdateListingDerived(ctx, l.ID,
		"bose quietcomfort 45", domain.BundleSingleItem, 0.8,
		"bose:quietcomfort_45:audio", domain.GateReadyForPricing,
	))
	require.NoError(t, s.UpdateListingEvaluation(ctx, l.ID, &domain.EvaluationResult{
		ListingID: l.ID, Strategy: domain.StrategyBuy, ExpectedProfit: 20,
	}))

	st, err := s.GetSystemState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ListingsTotal)
	assert.Equal(t, 1, st.ListingsBuy)
	assert.Equal(t, 0, st.ListingsUnresolved)
	assert.Equal(t, 1, st.IdentitiesTotal)
}
