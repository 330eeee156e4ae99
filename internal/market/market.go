// Package market scrapes a classifieds marketplace: search result
// pages for candidate listings, detail pages for enrichment, and sold
// or competing listings as price observations.
package market

import (
	"context"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Client is the read side of the marketplace.
type Client interface {
	// Search returns current listings for one query, newest first.
	Search(ctx context.Context, query string) ([]domain.RawListing, error)

	// FetchDetail loads one listing's detail page for enrichment.
	FetchDetail(ctx context.Context, itemURL string) (domain.ListingDetail, error)

	// SearchCompetitors returns price observations for a normalized
	// title from competing active listings.
	SearchCompetitors(ctx context.Context, normalizedTitle string) ([]domain.PriceObservation, error)
}

var _ Client = (*Scraper)(nil)
