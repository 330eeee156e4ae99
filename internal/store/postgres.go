package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// UpsertListing inserts or updates a listing by source_id. Derived and
// evaluation columns are never touched here; a re-scan must not wipe
// what a previous run computed.
func (s *PostgresStore) UpsertListing(ctx context.Context, l *domain.Listing) error {
	args := pgx.NamedArgs{
		"source_id":     l.SourceID,
		"title":         l.Title,
		"item_url":      l.ItemURL,
		"image_url":     l.ImageURL,
		"current_price": l.CurrentPrice,
		"buy_now_price": l.BuyNowPrice,
		"currency":      l.Currency,
		"description":   l.Description,
		"category_hint": l.CategoryHint,
		"end_time":      l.EndTime,
	}

	return s.pool.QueryRow(ctx, queryUpsertListing, args).Scan(
		&l.ID, &l.FirstSeenAt, &l.UpdatedAt,
	)
}

// GetListing retrieves a listing by its marketplace source ID.
func (s *PostgresStore) GetListing(ctx context.Context, sourceID string) (*domain.Listing, error) {
	l := &domain.Listing{}
	err := scanListing(s.pool.QueryRow(ctx, queryGetListingBySourceID, sourceID), l)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// GetListingByID retrieves a listing by its internal UUID.
func (s *PostgresStore) GetListingByID(ctx context.Context, id string) (*domain.Listing, error) {
	l := &domain.Listing{}
	err := scanListing(s.pool.QueryRow(ctx, queryGetListingByID, id), l)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListListings queries listings with optional filters, returning results and total count.
func (s *PostgresStore) ListListings(
	ctx context.Context,
	opts *ListingQuery,
) ([]domain.Listing, int, error) {
	dataSQL, countSQL, args := opts.ToSQL()

	// Get total count.
	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting listings: %w", err)
	}

	// Get data rows.
	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := scanListingRow(rows, &l); err != nil {
			return nil, 0, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating listings: %w", err)
	}

	return listings, total, nil
}

// UpdateListingDerived stores the classification results for a listing.
func (s *PostgresStore) UpdateListingDerived(
	ctx context.Context,
	id string,
	normalizedTitle string,
	bundleType domain.BundleType,
	bundleConfidence float64,
	identityKey string,
	gateState domain.GateState,
) error {
	_, err := s.pool.Exec(ctx, queryUpdateListingDerived,
		id, normalizedTitle, string(bundleType), bundleConfidence, identityKey, string(gateState),
	)
	if err != nil {
		return fmt.Errorf("updating listing derived fields: %w", err)
	}
	return nil
}

// UpdateListingEvaluation stores the final verdict for a listing. The
// gate state is fixed to match the outcome: a skipped verdict lands the
// listing in the skipped terminal state, anything else in ready_for_pricing.
func (s *PostgresStore) UpdateListingEvaluation(
	ctx context.Context,
	id string,
	res *domain.EvaluationResult,
) error {
	componentsJSON, err := marshalComponents(res.Components)
	if err != nil {
		return err
	}

	gateState := domain.GateReadyForPricing
	if res.Strategy == domain.StrategySkip && res.SkipReason == domain.SkipUnresolvedBundle {
		gateState = domain.GateSkipped
	}

	_, err = s.pool.Exec(ctx, queryUpdateListingEvaluation,
		id, string(res.Strategy), res.SkipReason,
		res.TotalNew, res.TotalResale, res.ExpectedProfit,
		componentsJSON, string(gateState),
	)
	if err != nil {
		return fmt.Errorf("updating listing evaluation: %w", err)
	}
	return nil
}

// UpdateListingDescription stores the enrichment description for a listing.
func (s *PostgresStore) UpdateListingDescription(ctx context.Context, id, description string) error {
	_, err := s.pool.Exec(ctx, queryUpdateListingDescription, id, description)
	if err != nil {
		return fmt.Errorf("updating listing description: %w", err)
	}
	return nil
}

// ListListingsByGateState returns listings in the given gate state, newest first.
func (s *PostgresStore) ListListingsByGateState(
	ctx context.Context,
	state domain.GateState,
	limit int,
) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx, queryListListingsByGateState, string(state), limit)
	if err != nil {
		return nil, fmt.Errorf("querying listings by gate state: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := scanListingRow(rows, &l); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

// InsertJobRun records the start of a scheduled job and returns its UUID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *PostgresStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListJobRuns, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// ListLatestJobRuns returns the single most recent run for each distinct job name.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListLatestJobRuns)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// GetSystemState returns a snapshot of aggregate pipeline counts.
func (s *PostgresStore) GetSystemState(ctx context.Context) (*domain.SystemState, error) {
	st := &domain.SystemState{}
	err := s.pool.QueryRow(ctx, querySystemState).Scan(
		&st.ListingsTotal, &st.ListingsBuy, &st.ListingsSkipped,
		&st.ListingsUnresolved, &st.IdentitiesTotal,
	)
	if err != nil {
		return nil, fmt.Errorf("querying system state: %w", err)
	}
	return st, nil
}

func marshalComponents(components []domain.BundleComponent) ([]byte, error) {
	if len(components) == 0 {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(components)
	if err != nil {
		return nil, fmt.Errorf("marshaling components: %w", err)
	}
	return b, nil
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

// scanListing scans a full listing row from a pgx.Row.
func scanListing(row scannable, l *domain.Listing) error {
	return row.Scan(
		&l.ID, &l.SourceID, &l.Title, &l.ItemURL, &l.ImageURL,
		&l.CurrentPrice, &l.BuyNowPrice, &l.Currency,
		&l.Description, &l.CategoryHint, &l.EndTime,
		&l.NormalizedTitle, &l.BundleType, &l.BundleConfidence,
		&l.IdentityKey, &l.GateState,
		&l.Strategy, &l.SkipReason,
		&l.TotalNew, &l.TotalResale, &l.ExpectedProfit, &l.Components,
		&l.FirstSeenAt, &l.UpdatedAt,
	)
}

// scanListingRow scans a listing from pgx.Rows (same fields).
func scanListingRow(rows pgx.Rows, l *domain.Listing) error {
	return rows.Scan(
		&l.ID, &l.SourceID, &l.Title, &l.ItemURL, &l.ImageURL,
		&l.CurrentPrice, &l.BuyNowPrice, &l.Currency,
		&l.Description, &l.CategoryHint, &l.EndTime,
		&l.NormalizedTitle, &l.BundleType, &l.BundleConfidence,
		&l.IdentityKey, &l.GateState,
		&l.Strategy, &l.SkipReason,
		&l.TotalNew, &l.TotalResale, &l.ExpectedProfit, &l.Components,
		&l.FirstSeenAt, &l.UpdatedAt,
	)
}
