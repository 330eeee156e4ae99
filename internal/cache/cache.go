// Package cache stores per-identity price estimates between runs so
// repeated identities don't re-trigger market searches or oracle
// calls. Backed by Redis in production, by an in-process map in tests
// and single-binary setups.
package cache

import (
	"context"

	domain "github.com/mbaumgartner/flipradar/pkg/types"
)

// PriceCache is a TTL-bounded estimate store keyed by identity key.
// Get returns ok=false on a miss; an expired entry is a miss.
type PriceCache interface {
	Get(ctx context.Context, identityKey string) (domain.PriceEstimate, bool, error)
	Set(ctx context.Context, identityKey string, estimate domain.PriceEstimate) error
	Delete(ctx context.Context, identityKey string) error
	Close() error
}

var (
	_ PriceCache = (*RedisCache)(nil)
	_ PriceCache = (*MemoryCache)(nil)
)
