package repository

import (
	"context"

	"amp-whale-tracker/internal/domain/entity"
)

// ResultStore defines the interface for cache entry storage. Freshness
// policy lives with the caller; stores only enforce retention and count
// bounds so every backend behaves identically.
type ResultStore interface {
	// Get retrieves the entry for a key, reporting whether it exists
	Get(ctx context.Context, key string) (*entity.CacheEntry, bool, error)

	// Put stores an entry, enforcing the store's retention and count bounds
	Put(ctx context.Context, entry *entity.CacheEntry) error

	// Delete removes the entry for a key
	Delete(ctx context.Context, key string) error

	// Len reports the number of retained entries
	Len(ctx context.Context) (int, error)
}
