package cache

import (
	"context"
	"sync"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/repository"
)

// MemoryStore is the default in-process result store: a mutex-guarded map
// bounded by entry count and by a retention window past each entry's TTL.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*entity.CacheEntry
	maxEntries int
	retention  time.Duration
	now        func() time.Time
}

// NewMemoryStore creates a bounded in-memory result store
func NewMemoryStore(maxEntries int, retention time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]*entity.CacheEntry),
		maxEntries: maxEntries,
		retention:  retention,
		now:        time.Now,
	}
}

var _ repository.ResultStore = (*MemoryStore)(nil)

// SetClock overrides the time source, used by tests to control expiry
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get retrieves the entry for a key, reporting whether it exists
func (s *MemoryStore) Get(ctx context.Context, key string) (*entity.CacheEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.expired(entry, s.now()) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return entry, true, nil
}

// Put stores an entry, enforcing the store's retention and count bounds
func (s *MemoryStore) Put(ctx context.Context, entry *entity.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, existing := range s.entries {
		if s.expired(existing, now) {
			delete(s.entries, key)
		}
	}

	s.entries[entry.Key] = entry

	for s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, existing := range s.entries {
			if oldestKey == "" || existing.FetchedAt.Before(oldest) {
				oldestKey = key
				oldest = existing.FetchedAt
			}
		}
		delete(s.entries, oldestKey)
	}

	return nil
}

// Delete removes the entry for a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports the number of retained entries
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

// expired reports whether the entry is past its retention horizon.
// Staleness within the retention window is the caller's policy; expiry
// drops the entry entirely.
func (s *MemoryStore) expired(entry *entity.CacheEntry, now time.Time) bool {
	return now.Sub(entry.FetchedAt) > entry.TTL()+s.retention
}
