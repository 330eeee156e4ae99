// Package notify defines the notification interface and implementations
// for buy alert delivery.
package notify

import (
	"context"
)

// BuyAlert contains the data needed to announce a buy decision.
type BuyAlert struct {
	ListingTitle   string
	ListingURL     string
	ImageURL       string
	PurchaseCost   string
	TotalResale    string
	ExpectedProfit float64
	Currency       string
	BundleType     string
	Components     []string
}

// Notifier defines the interface for sending buy alerts.
type Notifier interface {
	SendAlert(ctx context.Context, alert *BuyAlert) error
	SendBatchAlert(ctx context.Context, alerts []BuyAlert) error
}
