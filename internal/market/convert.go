package market

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// priceRegex finds the numeric part of Swiss price strings:
// "CHF 45.–", "45.00", "1'250.00", "Fr. 45".
var priceRegex = regexp.MustCompile(`(\d{1,3}(?:'\d{3})*(?:[.,]\d{1,2})?)`)

// ParsePrice extracts an amount from a marketplace price string.
// "Gratis" parses as zero; a string with no number is an error.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price string")
	}
	if strings.EqualFold(s, "gratis") || strings.EqualFold(s, "free") {
		return 0, nil
	}

	m := priceRegex.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("no amount in price string %q", s)
	}

	m = strings.ReplaceAll(m, "'", "")
	m = strings.ReplaceAll(m, ",", ".")

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", m, err)
	}
	return v, nil
}

func parseRating(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, fmt.Errorf("empty rating")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing rating %q: %w", s, err)
	}
	return v, nil
}

// listingFromCard converts one search result card into a RawListing.
// A card without an ID, title or URL is malformed and rejected.
func listingFromCard(e *colly.HTMLElement) (domain.RawListing, error) {
	id := e.Attr("data-listing-id")
	title := strings.TrimSpace(e.ChildText("h2.listing-title"))
	href := e.ChildAttr("a.listing-link", "href")

	if id == "" || title == "" || href == "" {
		return domain.RawListing{}, fmt.Errorf("card missing id, title or link")
	}

	l := domain.RawListing{
		ID:           id,
		Title:        title,
		URL:          e.Request.AbsoluteURL(href),
		ImageURL:     e.Request.AbsoluteURL(e.ChildAttr("img.listing-thumb", "src")),
		Currency:     "CHF",
		CategoryHint: strings.TrimSpace(e.ChildText("span.listing-category")),
	}

	if price, err := ParsePrice(e.ChildText("span.current-price")); err == nil {
		l.CurrentPrice = price
	}
	if buyNow, err := ParsePrice(e.ChildText("span.buynow-price")); err == nil && buyNow > 0 {
		l.BuyNowPrice = &buyNow
	}
	if end := strings.TrimSpace(e.ChildAttr("time.listing-end", "datetime")); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			l.EndTime = &t
		}
	}

	return l, nil
}
