package market

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/mbaumgartner/flipradar/internal/budget"
	"github.com/mbaumgartner/flipradar/internal/config"
	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// Scraper is a colly-backed marketplace client. Every operation clones
// the base collector so callbacks never leak between requests.
type Scraper struct {
	cfg    config.MarketConfig
	guard  *budget.Guard
	logger *slog.Logger
	base   *colly.Collector
}

// ScraperOption configures the Scraper.
type ScraperOption func(*Scraper)

// WithGuard sets the outbound request guard.
func WithGuard(g *budget.Guard) ScraperOption {
	return func(s *Scraper) {
		s.guard = g
	}
}

// NewScraper creates a marketplace scraper.
func NewScraper(cfg config.MarketConfig, logger *slog.Logger, opts ...ScraperOption) *Scraper {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	base.SetRequestTimeout(cfg.RequestTimeout)
	// Retries and repeated competitor searches hit the same URLs.
	base.AllowURLRevisit = true

	s := &Scraper{
		cfg:    cfg,
		logger: logger,
		base:   base,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = budget.NewGuard(
			cfg.RateLimit.PerSecond,
			cfg.RateLimit.Burst,
			cfg.RateLimit.DailyLimit,
		)
	}
	return s
}

// Search scrapes result pages for one query up to the configured page
// limit. Pages after the first that fail are logged and skipped; a
// failing first page fails the search.
func (s *Scraper) Search(ctx context.Context, query string) ([]domain.RawListing, error) {
	var listings []domain.RawListing

	for page := 1; page <= s.cfg.MaxPages; page++ {
		pageURL := s.searchURL(query, page)

		found, err := s.scrapeSearchPage(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("searching %q: %w", query, err)
			}
			s.logger.Warn("search page failed, stopping pagination",
				"query", query, "page", page, "error", err)
			break
		}
		if len(found) == 0 {
			break
		}
		listings = append(listings, found...)
	}

	s.logger.Debug("search complete", "query", query, "listings", len(listings))
	return listings, nil
}

func (s *Scraper) scrapeSearchPage(ctx context.Context, pageURL string) ([]domain.RawListing, error) {
	if err := s.guard.Allow(ctx); err != nil {
		return nil, err
	}

	var listings []domain.RawListing

	c := s.base.Clone()
	c.OnHTML("article.listing", func(e *colly.HTMLElement) {
		l, err := listingFromCard(e)
		if err != nil {
			s.logger.Debug("skipping malformed listing card", "url", pageURL, "error", err)
			return
		}
		listings = append(listings, l)
	})

	if err := s.visit(ctx, c, pageURL); err != nil {
		return nil, err
	}
	return listings, nil
}

// FetchDetail loads the enrichment payload from a listing's page.
func (s *Scraper) FetchDetail(ctx context.Context, itemURL string) (domain.ListingDetail, error) {
	if err := s.guard.Allow(ctx); err != nil {
		return domain.ListingDetail{}, err
	}

	var detail domain.ListingDetail

	c := s.base.Clone()
	c.OnHTML("div.listing-detail", func(e *colly.HTMLElement) {
		detail.Description = strings.TrimSpace(e.ChildText("div.description"))
		e.ForEach("img.gallery-image", func(_ int, img *colly.HTMLElement) {
			if src := img.Attr("src"); src != "" {
				detail.Images = append(detail.Images, e.Request.AbsoluteURL(src))
			}
		})
		if shipping, err := ParsePrice(e.ChildText("span.shipping-cost")); err == nil {
			detail.ShippingCost = &shipping
		}
		if rating, err := parseRating(e.ChildText("span.seller-rating")); err == nil {
			detail.SellerRating = &rating
		}
	})

	if err := s.visit(ctx, c, itemURL); err != nil {
		return domain.ListingDetail{}, fmt.Errorf("fetching detail %s: %w", itemURL, err)
	}
	if detail.Description == "" && len(detail.Images) == 0 {
		return domain.ListingDetail{}, fmt.Errorf("detail page %s had no recognizable content", itemURL)
	}
	return detail, nil
}

// SearchCompetitors scrapes the first result page for a normalized
// title and returns each hit's price as a market observation.
func (s *Scraper) SearchCompetitors(ctx context.Context, normalizedTitle string) ([]domain.PriceObservation, error) {
	found, err := s.scrapeSearchPage(ctx, s.searchURL(normalizedTitle, 1))
	if err != nil {
		return nil, fmt.Errorf("searching competitors for %q: %w", normalizedTitle, err)
	}

	obs := make([]domain.PriceObservation, 0, len(found))
	for _, l := range found {
		price := l.CurrentPrice
		if l.BuyNowPrice != nil && *l.BuyNowPrice > 0 {
			price = *l.BuyNowPrice
		}
		if price <= 0 {
			continue
		}
		obs = append(obs, domain.PriceObservation{
			Amount: price,
			Origin: domain.OriginMarketCompetitor,
			Source: l.URL,
		})
	}
	return obs, nil
}

// visit runs one collector visit with retries and exponential backoff.
func (s *Scraper) visit(ctx context.Context, c *colly.Collector, pageURL string) error {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			s.logger.Debug("retrying page", "url", pageURL, "attempt", attempt)
		}

		if err := c.Visit(pageURL); err != nil {
			lastErr = err
			continue
		}
		c.Wait()
		return nil
	}

	return fmt.Errorf("visiting %s after %d retries: %w", pageURL, s.cfg.MaxRetries, lastErr)
}

func (s *Scraper) searchURL(query string, page int) string {
	return fmt.Sprintf(
		"%s/search?q=%s&page=%d",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		url.QueryEscape(query),
		page,
	)
}
