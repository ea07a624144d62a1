package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/repository"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix = "whale:results:"
	redisIndexKey  = "whale:results:index"
)

// RedisStore keeps cache entries in Redis so replicas share one result
// cache. Entries expire at TTL plus retention; a sorted-set index scored by
// fetch time enforces the count bound.
type RedisStore struct {
	client     *redis.Client
	maxEntries int
	retention  time.Duration
	logger     *logger.Logger
}

// NewRedisStore creates a Redis-backed result store
func NewRedisStore(cfg *config.RedisConfig, maxEntries int, retention time.Duration, log *logger.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	return &RedisStore{
		client:     client,
		maxEntries: maxEntries,
		retention:  retention,
		logger:     log.WithComponent("redis-store"),
	}
}

var _ repository.ResultStore = (*RedisStore)(nil)

// Ping verifies the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get retrieves the entry for a key, reporting whether it exists
func (s *RedisStore) Get(ctx context.Context, key string) (*entity.CacheEntry, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// The value expired; drop its index member as well.
		s.client.ZRem(ctx, redisIndexKey, key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry entity.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, true, nil
}

// Put stores an entry, enforcing the store's retention and count bounds
func (s *RedisStore) Put(ctx context.Context, entry *entity.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+entry.Key, data, entry.TTL()+s.retention)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(entry.FetchedAt.UnixMilli()),
		Member: entry.Key,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return s.trim(ctx)
}

// Delete removes the entry for a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisKeyPrefix+key)
	pipe.ZRem(ctx, redisIndexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Len reports the number of retained entries
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	count, err := s.client.ZCard(ctx, redisIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to size cache index: %w", err)
	}
	return int(count), nil
}

// trim drops the oldest index members and their values beyond the count
// bound.
func (s *RedisStore) trim(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}

	count, err := s.client.ZCard(ctx, redisIndexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to size cache index: %w", err)
	}
	if count <= int64(s.maxEntries) {
		return nil
	}

	evict, err := s.client.ZRange(ctx, redisIndexKey, 0, count-int64(s.maxEntries)-1).Result()
	if err != nil {
		return fmt.Errorf("failed to list cache evictions: %w", err)
	}
	if len(evict) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, key := range evict {
		pipe.Del(ctx, redisKeyPrefix+key)
	}
	pipe.ZRem(ctx, redisIndexKey, toMembers(evict)...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to evict cache entries: %w", err)
	}

	s.logger.Debug("Evicted cache entries", zap.Int("count", len(evict)))
	return nil
}

func toMembers(keys []string) []interface{} {
	members := make([]interface{}, len(keys))
	for i, key := range keys {
		members[i] = key
	}
	return members
}
