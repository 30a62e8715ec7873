// Package cache defines read-through caches keyed by comparable values.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned when a key is absent and cannot be loaded
var ErrCacheMiss = errors.New("cache miss")

// Cache returns shared values. Callers must not modify them.
type Cache[K comparable, V any] interface {
	// Get returns the cached value, loading it on a miss
	Get(ctx context.Context, key K) (*V, error)
	Invalidate(ctx context.Context, key K)
	InvalidateAll(ctx context.Context)
	// Len is the number of entries currently held
	Len() int
}
