// Package budget guards spend against paid upstreams. It combines a
// token bucket for request pacing with a rolling 24-hour window for
// daily quota tracking.
package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned when the daily call budget is spent.
var ErrBudgetExhausted = errors.New("daily budget exhausted")

// Guard controls call rate and daily usage for one upstream. The daily
// quota uses a rolling 24-hour window that opens on construction and
// re-opens 24 hours later.
type Guard struct {
	limiter     *rate.Limiter
	spent       atomic.Int64
	maxDaily    int64
	windowStart time.Time
	resetAt     time.Time
	mu          sync.Mutex
	nowFunc     func() time.Time
}

// GuardOption configures the Guard.
type GuardOption func(*Guard)

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) GuardOption {
	return func(g *Guard) {
		g.nowFunc = f
	}
}

// NewGuard creates a Guard with the given per-second rate, burst size
// and daily budget.
func NewGuard(perSecond float64, burst int, maxDaily int64, opts ...GuardOption) *Guard {
	g := &Guard{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	now := g.nowFunc()
	g.windowStart = now
	g.resetAt = now.Add(24 * time.Hour)
	return g
}

// Allow blocks until the pacing limiter admits the call, or the
// context is canceled. Returns ErrBudgetExhausted once the daily
// budget is spent; callers are expected to degrade, not retry.
func (g *Guard) Allow(ctx context.Context) error {
	g.checkWindowReset()

	if g.spent.Load() >= g.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrBudgetExhausted, g.spent.Load(), g.maxDaily)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("budget pacing wait: %w", err)
	}

	g.spent.Add(1)
	return nil
}

// Spent returns the call count within the current window.
func (g *Guard) Spent() int64 {
	return g.spent.Load()
}

// MaxDaily returns the configured daily budget.
func (g *Guard) MaxDaily() int64 {
	return g.maxDaily
}

// Remaining returns the calls left in the current 24-hour window.
func (g *Guard) Remaining() int64 {
	remaining := g.maxDaily - g.spent.Load()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetAt returns the time the current window expires.
func (g *Guard) ResetAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resetAt
}

func (g *Guard) checkWindowReset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()
	if now.After(g.resetAt) {
		g.spent.Store(0)
		g.windowStart = now
		g.resetAt = now.Add(24 * time.Hour)
	}
}
