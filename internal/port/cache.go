package port

import (
	"context"
	"time"
)

// CacheRepository is an advisory read-side cache for expensive
// aggregations. It is never consulted for correctness-critical state.
type CacheRepository interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Invalidate(ctx context.Context, keys ...string) error
}
