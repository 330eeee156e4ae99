package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mbaumgartner/flipradar/internal/store"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// ListingsProvider defines the store methods required by the listings handler.
type ListingsProvider interface {
	ListListings(ctx context.Context, opts *store.ListingQuery) ([]domain.Listing, int, error)
	GetListingByID(ctx context.Context, id string) (*domain.Listing, error)
}

// ListingsHandler handles listing query endpoints.
type ListingsHandler struct {
	store ListingsProvider
}

// NewListingsHandler creates a new ListingsHandler.
func NewListingsHandler(s ListingsProvider) *ListingsHandler {
	return &ListingsHandler{store: s}
}

// --- Input/Output types ---

// ListListingsInput is the input for listing listings with optional filters.
type ListListingsInput struct {
	Strategy    string  `query:"strategy"     doc:"Filter by evaluation strategy"  enum:"buy,skip,"`
	GateState   string  `query:"gate_state"   doc:"Filter by decision gate state"  enum:"initial,needs_enrichment,enriched,ready_for_pricing,skipped,"`
	BundleType  string  `query:"bundle_type"  doc:"Filter by bundle type"          enum:"single_item,quantity_bundle,weight_or_measure_bundle,unknown,"`
	IdentityKey string  `query:"identity_key" doc:"Filter by product identity key"`
	MinProfit   float64 `query:"min_profit"   doc:"Minimum expected profit in CHF"`
	Limit       int     `query:"limit"        doc:"Number of results (default 50)" minimum:"1" maximum:"500"`
	Offset      int     `query:"offset"       doc:"Pagination offset"              minimum:"0"`
	OrderBy     string  `query:"order_by"     doc:"Sort field"                     enum:"profit,price,first_seen_at,"`
}

// ListListingsOutput is the response for listing listings.
type ListListingsOutput struct {
	Body struct {
		Listings []domain.Listing `json:"listings"`
		Total    int              `json:"total"`
		Limit    int              `json:"limit"`
		Offset   int              `json:"offset"`
	}
}

// GetListingInput is the input for getting a single listing.
type GetListingInput struct {
	ID string `path:"id" doc:"Listing UUID"`
}

// GetListingOutput is the response for getting a single listing.
type GetListingOutput struct {
	Body domain.Listing
}

// --- Handlers ---

// ListListings returns listings with optional filters for strategy, gate
// state, bundle type, identity and minimum profit.
func (h *ListingsHandler) ListListings(
	ctx context.Context,
	input *ListListingsInput,
) (*ListListingsOutput, error) {
	q := &store.ListingQuery{
		Offset:  input.Offset,
		OrderBy: input.OrderBy,
	}

	if input.Strategy != "" {
		q.Strategy = &input.Strategy
	}

	if input.GateState != "" {
		q.GateState = &input.GateState
	}

	if input.BundleType != "" {
		q.BundleType = &input.BundleType
	}

	if input.IdentityKey != "" {
		q.IdentityKey = &input.IdentityKey
	}

	if input.MinProfit != 0 {
		q.MinProfit = &input.MinProfit
	}

	if input.Limit != 0 {
		q.Limit = input.Limit
	}

	listings, total, err := h.store.ListListings(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing query failed: " + err.Error())
	}

	if listings == nil {
		listings = []domain.Listing{}
	}

	resp := &ListListingsOutput{}
	resp.Body.Listings = listings
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// GetListing returns a single listing by ID.
func (h *ListingsHandler) GetListing(
	ctx context.Context,
	input *GetListingInput,
) (*GetListingOutput, error) {
	listing, err := h.store.GetListingByID(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("listing not found")
	}

	return &GetListingOutput{Body: *listing}, nil
}

// RegisterListingRoutes registers listing endpoints with the Huma API.
func RegisterListingRoutes(api huma.API, h *ListingsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-listings",
		Method:      http.MethodGet,
		Path:        "/api/v1/listings",
		Summary:     "List listings",
		Description: "Returns listings with optional filters for strategy, gate state, bundle type, identity key, minimum profit and pagination.",
		Tags:        []string{"listings"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListListings)

	huma.Register(api, huma.Operation{
		OperationID: "get-listing",
		Method:      http.MethodGet,
		Path:        "/api/v1/listings/{id}",
		Summary:     "Get a listing by ID",
		Description: "Returns a single listing by its UUID.",
		Tags:        []string{"listings"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetListing)
}
