package service

import (
	"context"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/repository"
	"amp-whale-tracker/internal/domain/service"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache key shapes. Transfer and aggregate results for the same parameters
// are cached independently.
const (
	transferShape  = "transfers"
	aggregateShape = "aggregates"
)

// CachedQueryService serves whale queries through the result store.
// Concurrent misses for one key share a single remote call, and a failed
// refetch falls back to the expired entry while one is retained.
type CachedQueryService struct {
	repo       repository.TransferRepository
	store      repository.ResultStore
	ttlSeconds int
	logger     *logger.Logger
	group      singleflight.Group
	now        func() time.Time
}

// NewCachedQueryService creates a new cached query service
func NewCachedQueryService(
	repo repository.TransferRepository,
	store repository.ResultStore,
	cfg *config.CacheConfig,
	logger *logger.Logger,
) service.QueryService {
	return &CachedQueryService{
		repo:       repo,
		store:      store,
		ttlSeconds: int(cfg.TTL.Seconds()),
		logger:     logger.WithComponent("query-service"),
		now:        time.Now,
	}
}

// SetClock overrides the service clock, used by tests to control freshness
func (s *CachedQueryService) SetClock(now func() time.Time) {
	s.now = now
}

// WhaleTransfers returns the transfer result for params, served from cache
// when fresh.
func (s *CachedQueryService) WhaleTransfers(ctx context.Context, params entity.QueryParams) (*entity.TransferResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := transferShape + "?" + params.Key()
	prior := s.lookup(ctx, key)
	if prior != nil && prior.Fresh(s.now()) {
		return &entity.TransferResult{
			Transfers: prior.Transfers,
			FetchedAt: prior.FetchedAt,
			Cached:    true,
		}, nil
	}

	entry, err := s.fill(ctx, key, func() (*entity.CacheEntry, error) {
		transfers, err := s.repo.WhaleTransfers(ctx, params)
		if err != nil {
			return nil, err
		}
		return &entity.CacheEntry{
			Key:        key,
			Transfers:  transfers,
			FetchedAt:  s.now(),
			TTLSeconds: s.ttlSeconds,
		}, nil
	})
	if err != nil {
		if prior != nil {
			s.logger.Warn("Serving stale transfer result",
				zap.String("key", key),
				zap.Error(err))
			return &entity.TransferResult{
				Transfers: prior.Transfers,
				FetchedAt: prior.FetchedAt,
				Cached:    true,
				Stale:     true,
			}, nil
		}
		return nil, err
	}

	return &entity.TransferResult{
		Transfers: entry.Transfers,
		FetchedAt: entry.FetchedAt,
	}, nil
}

// TopAddresses returns the aggregate result for params, served from cache
// when fresh.
func (s *CachedQueryService) TopAddresses(ctx context.Context, params entity.QueryParams) (*entity.AggregateResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := aggregateShape + "?" + params.Key()
	prior := s.lookup(ctx, key)
	if prior != nil && prior.Fresh(s.now()) {
		return &entity.AggregateResult{
			Aggregates: prior.Aggregates,
			FetchedAt:  prior.FetchedAt,
			Cached:     true,
		}, nil
	}

	entry, err := s.fill(ctx, key, func() (*entity.CacheEntry, error) {
		aggregates, err := s.repo.TopAddresses(ctx, params)
		if err != nil {
			return nil, err
		}
		return &entity.CacheEntry{
			Key:        key,
			Aggregates: aggregates,
			FetchedAt:  s.now(),
			TTLSeconds: s.ttlSeconds,
		}, nil
	})
	if err != nil {
		if prior != nil {
			s.logger.Warn("Serving stale aggregate result",
				zap.String("key", key),
				zap.Error(err))
			return &entity.AggregateResult{
				Aggregates: prior.Aggregates,
				FetchedAt:  prior.FetchedAt,
				Cached:     true,
				Stale:      true,
			}, nil
		}
		return nil, err
	}

	return &entity.AggregateResult{
		Aggregates: entry.Aggregates,
		FetchedAt:  entry.FetchedAt,
	}, nil
}

// Invalidate drops cached entries for params so the next call refetches
func (s *CachedQueryService) Invalidate(ctx context.Context, params entity.QueryParams) {
	for _, shape := range []string{transferShape, aggregateShape} {
		key := shape + "?" + params.Key()
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to invalidate cache entry",
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

// lookup reads the store, treating store failures as a miss so a broken
// cache backend degrades to direct fetches.
func (s *CachedQueryService) lookup(ctx context.Context, key string) *entity.CacheEntry {
	entry, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache lookup failed",
			zap.String("key", key),
			zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return entry
}

// fill performs the remote fetch for key, coalescing concurrent callers
// into one call, and caches the full payload on success.
func (s *CachedQueryService) fill(ctx context.Context, key string, fetch func() (*entity.CacheEntry, error)) (*entity.CacheEntry, error) {
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		entry, err := fetch()
		if err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, entry); err != nil {
			s.logger.Warn("Failed to cache query result",
				zap.String("key", key),
				zap.Error(err))
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.CacheEntry), nil
}
