// Package store defines the datastore abstraction for flipradar.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running database.
package store

import (
	"context"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// ListingQuery defines optional filters for listing queries.
type ListingQuery struct {
	Strategy    *string
	GateState   *string
	BundleType  *string
	IdentityKey *string
	MinProfit   *float64
	Limit       int // default 50
	Offset      int
	OrderBy     string // "profit", "price", "first_seen_at"
}

// Store defines all data access operations for flipradar.
type Store interface {
	// Listings
	UpsertListing(ctx context.Context, l *domain.Listing) error
	GetListing(ctx context.Context, sourceID string) (*domain.Listing, error)
	GetListingByID(ctx context.Context, id string) (*domain.Listing, error)
	ListListings(ctx context.Context, opts *ListingQuery) ([]domain.Listing, int, error)
	UpdateListingDerived(
		ctx context.Context,
		id string,
		normalizedTitle string,
		bundleType domain.BundleType,
		bundleConfidence float64,
		identityKey string,
		gateState domain.GateState,
	) error
	UpdateListingEvaluation(ctx context.Context, id string, res *domain.EvaluationResult) error
	UpdateListingDescription(ctx context.Context, id string, description string) error
	ListListingsByGateState(ctx context.Context, state domain.GateState, limit int) ([]domain.Listing, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)

	// State
	GetSystemState(ctx context.Context) (*domain.SystemState, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
