package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"amp-whale-tracker/internal/application/service"
	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/repository"
	"amp-whale-tracker/internal/infrastructure/cache"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

type stubRepo struct {
	mu             sync.Mutex
	transferCalls  int
	aggregateCalls int
	transfers      []*entity.WhaleTransfer
	aggregates     []*entity.AddressAggregate
	err            error
	block          chan struct{}
}

func (r *stubRepo) WhaleTransfers(ctx context.Context, params entity.QueryParams) ([]*entity.WhaleTransfer, error) {
	r.mu.Lock()
	r.transferCalls++
	block := r.block
	err := r.err
	transfers := r.transfers
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *stubRepo) TopAddresses(ctx context.Context, params entity.QueryParams) ([]*entity.AddressAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregateCalls++
	if r.err != nil {
		return nil, r.err
	}
	return r.aggregates, nil
}

func (r *stubRepo) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *stubRepo) TransferCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transferCalls
}

func (r *stubRepo) AggregateCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aggregateCalls
}

type failingStore struct{}

func (f *failingStore) Get(ctx context.Context, key string) (*entity.CacheEntry, bool, error) {
	return nil, false, errors.New("backend down")
}

func (f *failingStore) Put(ctx context.Context, entry *entity.CacheEntry) error {
	return errors.New("backend down")
}

func (f *failingStore) Delete(ctx context.Context, key string) error {
	return errors.New("backend down")
}

func (f *failingStore) Len(ctx context.Context) (int, error) {
	return 0, errors.New("backend down")
}

func newTestQueryService(repo repository.TransferRepository, store repository.ResultStore) *service.CachedQueryService {
	svc := service.NewCachedQueryService(repo, store, &config.CacheConfig{TTL: 30 * time.Second}, testLogger())
	return svc.(*service.CachedQueryService)
}

func TestWhaleTransfersCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{transfers: []*entity.WhaleTransfer{{TransactionHash: "0x1", EthAmount: 75}}}
	store := cache.NewMemoryStore(32, time.Hour)
	svc := newTestQueryService(repo, store)

	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store.SetClock(clock)
	svc.SetClock(clock)

	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}

	first, err := svc.WhaleTransfers(ctx, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached {
		t.Error("first call must fetch")
	}

	now = now.Add(10 * time.Second)
	second, err := svc.WhaleTransfers(ctx, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached || second.Stale {
		t.Errorf("second call within TTL must serve cached, got cached=%v stale=%v", second.Cached, second.Stale)
	}
	if !second.FetchedAt.Equal(first.FetchedAt) {
		t.Error("cached result must carry the original fetch time")
	}
	if repo.TransferCalls() != 1 {
		t.Errorf("expected 1 fetch, got %d", repo.TransferCalls())
	}
}

func TestWhaleTransfersRefetchesAfterTTL(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{transfers: []*entity.WhaleTransfer{{TransactionHash: "0x1", EthAmount: 75}}}
	store := cache.NewMemoryStore(32, time.Hour)
	svc := newTestQueryService(repo, store)

	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store.SetClock(clock)
	svc.SetClock(clock)

	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}

	if _, err := svc.WhaleTransfers(ctx, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(31 * time.Second)
	result, err := svc.WhaleTransfers(ctx, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cached {
		t.Error("call past TTL must refetch")
	}
	if repo.TransferCalls() != 2 {
		t.Errorf("expected 2 fetches, got %d", repo.TransferCalls())
	}
}

func TestWhaleTransfersServesStaleOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{transfers: []*entity.WhaleTransfer{{TransactionHash: "0x1", EthAmount: 75}}}
	store := cache.NewMemoryStore(32, time.Hour)
	svc := newTestQueryService(repo, store)

	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store.SetClock(clock)
	svc.SetClock(clock)

	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}

	if _, err := svc.WhaleTransfers(ctx, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(31 * time.Second)
	repo.SetErr(entity.NewQueryError(entity.ErrKindConnection, "endpoint unreachable", nil))

	result, err := svc.WhaleTransfers(ctx, params)
	if err != nil {
		t.Fatalf("stale fallback must not error: %v", err)
	}
	if !result.Cached || !result.Stale {
		t.Errorf("expected stale cached result, got cached=%v stale=%v", result.Cached, result.Stale)
	}
	if len(result.Transfers) != 1 || result.Transfers[0].TransactionHash != "0x1" {
		t.Errorf("stale result must carry the prior payload: %+v", result.Transfers)
	}
}

func TestWhaleTransfersErrorWithoutPrior(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{err: entity.NewQueryError(entity.ErrKindConnection, "endpoint unreachable", nil)}
	store := cache.NewMemoryStore(32, time.Hour)
	svc := newTestQueryService(repo, store)

	_, err := svc.WhaleTransfers(ctx, entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200})
	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindConnection {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestWhaleTransfersValidatesBeforeFetch(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{}
	svc := newTestQueryService(repo, cache.NewMemoryStore(32, time.Hour))

	_, err := svc.WhaleTransfers(ctx, entity.QueryParams{MinEth: 50, WindowHours: 0, Limit: 200})
	qerr, ok := entity.AsQueryError(err)
	if !ok || qerr.Kind != entity.ErrKindInvalidParameter {
		t.Fatalf("expected invalid_parameter error, got %v", err)
	}
	if repo.TransferCalls() != 0 {
		t.Errorf("invalid params must not reach the repository, got %d calls", repo.TransferCalls())
	}
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	repo := &stubRepo{
		transfers: []*entity.WhaleTransfer{{TransactionHash: "0x1", EthAmount: 75}},
		block:     block,
	}
	store := cache.NewMemoryStore(32, time.Hour)
	svc := newTestQueryService(repo, store)

	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}

	var wg sync.WaitGroup
	results := make([]*entity.TransferResult, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.WhaleTransfers(ctx, params)
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(block)
	wg.Wait()

	for i := 0; i < 4; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if len(results[i].Transfers) != 1 {
			t.Errorf("caller %d: unexpected payload %+v", i, results[i].Transfers)
		}
	}
	if repo.TransferCalls() != 1 {
		t.Errorf("concurrent misses must share one fetch, got %d", repo.TransferCalls())
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{transfers: []*entity.WhaleTransfer{{TransactionHash: "0x1", EthAmount: 75}}}
	store := cache.NewMemoryStore(32, time.Hour)
	svc := newTestQueryService(repo, store)

	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}

	if _, err := svc.WhaleTransfers(ctx, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.Invalidate(ctx, params)

	result, err := svc.WhaleTransfers(ctx, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cached {
		t.Error("call after invalidation must refetch")
	}
	if repo.TransferCalls() != 2 {
		t.Errorf("expected 2 fetches, got %d", repo.TransferCalls())
	}
}

func TestTransferAndAggregateCachesAreIndependent(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{
		transfers:  []*entity.WhaleTransfer{{TransactionHash: "0x1", EthAmount: 75}},
		aggregates: []*entity.AddressAggregate{{Address: "0xaaa", TransferCount: 3, TotalEthSent: 500}},
	}
	store := cache.NewMemoryStore(32, time.Hour)
	svc := newTestQueryService(repo, store)

	params := entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200}

	if _, err := svc.WhaleTransfers(ctx, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.TopAddresses(ctx, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.TransferCalls() != 1 || repo.AggregateCalls() != 1 {
		t.Errorf("each shape fetches once, got transfers=%d aggregates=%d",
			repo.TransferCalls(), repo.AggregateCalls())
	}

	cached, err := svc.TopAddresses(ctx, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cached.Cached {
		t.Error("repeated aggregate call must serve cached")
	}
	if repo.AggregateCalls() != 1 {
		t.Errorf("expected 1 aggregate fetch, got %d", repo.AggregateCalls())
	}
}

func TestQueryServiceSurvivesBrokenStore(t *testing.T) {
	ctx := context.Background()
	repo := &stubRepo{transfers: []*entity.WhaleTransfer{{TransactionHash: "0x1", EthAmount: 75}}}
	svc := newTestQueryService(repo, &failingStore{})

	result, err := svc.WhaleTransfers(ctx, entity.QueryParams{MinEth: 50, WindowHours: 6, Limit: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Cached {
		t.Error("a broken store must degrade to direct fetches")
	}
	if len(result.Transfers) != 1 {
		t.Errorf("unexpected payload: %+v", result.Transfers)
	}
}
