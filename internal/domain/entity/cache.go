package entity

import (
	"time"
)

// CacheEntry is one memoized query result. The payload is always the full
// result of one successful remote call; partial results are never cached.
// Exactly one of Transfers or Aggregates is set, matching the key's shape.
type CacheEntry struct {
	Key        string              `json:"key"`
	Transfers  []*WhaleTransfer    `json:"transfers,omitempty"`
	Aggregates []*AddressAggregate `json:"aggregates,omitempty"`
	FetchedAt  time.Time           `json:"fetched_at"`
	TTLSeconds int                 `json:"ttl_seconds"`
}

// TTL returns the entry's freshness window as a duration
func (e *CacheEntry) TTL() time.Duration {
	return time.Duration(e.TTLSeconds) * time.Second
}

// Fresh reports whether the entry is within its TTL at the given instant
func (e *CacheEntry) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) <= e.TTL()
}

// TransferResult is a transfer payload together with its cache provenance.
// Stale marks a payload served from an expired entry after a fetch failure.
type TransferResult struct {
	Transfers []*WhaleTransfer `json:"transfers"`
	FetchedAt time.Time        `json:"fetched_at"`
	Cached    bool             `json:"cached"`
	Stale     bool             `json:"stale"`
}

// AggregateResult is an aggregate payload together with its cache provenance.
type AggregateResult struct {
	Aggregates []*AddressAggregate `json:"aggregates"`
	FetchedAt  time.Time           `json:"fetched_at"`
	Cached     bool                `json:"cached"`
	Stale      bool                `json:"stale"`
}
