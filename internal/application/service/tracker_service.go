package service

import (
	"context"
	"sync"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/service"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// alertMemory bounds the set of transaction hashes remembered for alert
// deduplication.
const alertMemory = 4096

type refreshRequest struct {
	force bool
}

// TrackerApplicationService implements TrackerService. It owns the refresh
// loop: one goroutine ticks on the configured interval, explicit triggers
// reset the ticker, and fetch results apply only while their generation
// still matches the current parameters.
type TrackerApplicationService struct {
	queries     service.QueryService
	stats       *service.StatsService
	broadcaster service.SnapshotBroadcaster
	alerts      service.AlertPublisher
	logger      *logger.Logger

	interval         time.Duration
	leaderboardLimit int
	alertMinEth      float64

	mu          sync.Mutex
	params      entity.QueryParams
	autoRefresh bool
	generation  uint64
	inFlight    bool
	inFlightGen uint64
	snapshot    *entity.DashboardSnapshot
	seenHashes  map[string]struct{}
	seenOrder   []string

	trigger chan refreshRequest
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewTrackerApplicationService creates a new tracker application service
func NewTrackerApplicationService(
	queries service.QueryService,
	stats *service.StatsService,
	broadcaster service.SnapshotBroadcaster,
	alerts service.AlertPublisher,
	cfg *config.Config,
	logger *logger.Logger,
) service.TrackerService {
	interval := cfg.Refresh.Interval()
	if interval <= 0 {
		interval = 30 * time.Second
	}

	alertMinEth := 0.0
	if cfg.Alerts.Enabled {
		alertMinEth = cfg.Alerts.MinEth
	}

	return &TrackerApplicationService{
		queries:     queries,
		stats:       stats,
		broadcaster: broadcaster,
		alerts:      alerts,
		logger:      logger.WithComponent("tracker-service"),

		interval:         interval,
		leaderboardLimit: cfg.Query.LeaderboardLimit,
		alertMinEth:      alertMinEth,

		params: entity.QueryParams{
			MinEth:      cfg.Query.MinEth,
			WindowHours: cfg.Query.WindowHours,
			Limit:       cfg.Query.TransferLimit,
		},
		autoRefresh: cfg.Refresh.AutoEnabled,
		seenHashes:  make(map[string]struct{}),

		trigger: make(chan refreshRequest, 8),
	}
}

// Start launches the refresh loop and performs the initial fetch
func (s *TrackerApplicationService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	// The loop outlives the caller's context; Stop cancels it.
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info("Tracker started",
		zap.Duration("interval", s.interval),
		zap.Bool("auto_refresh", s.autoRefresh))

	s.requestRefresh(false)
	return nil
}

// Stop halts the loop and waits for in-flight work to settle
func (s *TrackerApplicationService) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Tracker stopped")
	return nil
}

// Snapshot returns the most recently applied dashboard snapshot. Snapshots
// are immutable; callers may hold the pointer without copying.
func (s *TrackerApplicationService) Snapshot() *entity.DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return &entity.DashboardSnapshot{
			State:           entity.StateIdle,
			Params:          s.params,
			AutoRefresh:     s.autoRefresh,
			IntervalSeconds: int(s.interval.Seconds()),
			Transfers:       []*entity.WhaleTransfer{},
			Leaderboard:     []*entity.AddressAggregate{},
			Histogram:       []entity.HistogramBin{},
		}
	}
	return s.snapshot
}

// SetParams validates and applies new query parameters. A change bumps the
// generation so any in-flight fetch for the old parameters is discarded on
// completion, and triggers an immediate fetch.
func (s *TrackerApplicationService) SetParams(ctx context.Context, params entity.QueryParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if params == s.params {
		s.mu.Unlock()
		return nil
	}
	s.params = params
	s.generation++
	s.mu.Unlock()

	s.logger.Info("Query parameters changed",
		zap.Float64("min_eth", params.MinEth),
		zap.Int("window_hours", params.WindowHours),
		zap.Int("limit", params.Limit))

	s.requestRefresh(false)
	return nil
}

// SetAutoRefresh toggles the periodic refresh timer
func (s *TrackerApplicationService) SetAutoRefresh(enabled bool) {
	s.mu.Lock()
	s.autoRefresh = enabled
	var snap *entity.DashboardSnapshot
	if s.snapshot != nil {
		copied := *s.snapshot
		copied.AutoRefresh = enabled
		s.snapshot = &copied
		snap = &copied
	}
	s.mu.Unlock()

	s.logger.Info("Auto refresh toggled", zap.Bool("enabled", enabled))
	if snap != nil {
		s.broadcaster.BroadcastSnapshot(snap)
	}
}

// ForceRefresh invalidates current cache entries and refreshes immediately
func (s *TrackerApplicationService) ForceRefresh() {
	s.requestRefresh(true)
}

// requestRefresh queues a trigger without blocking. A full channel means a
// refresh is already pending.
func (s *TrackerApplicationService) requestRefresh(force bool) {
	select {
	case s.trigger <- refreshRequest{force: force}:
	default:
	}
}

func (s *TrackerApplicationService) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			skip := !s.autoRefresh || (s.inFlight && s.inFlightGen == s.generation)
			var fetching *entity.DashboardSnapshot
			if !skip {
				fetching = s.startFetchLocked(ctx, false)
			}
			s.mu.Unlock()
			if fetching != nil {
				s.broadcaster.BroadcastSnapshot(fetching)
			}
		case req := <-s.trigger:
			ticker.Reset(s.interval)
			s.mu.Lock()
			fetching := s.startFetchLocked(ctx, req.force)
			s.mu.Unlock()
			s.broadcaster.BroadcastSnapshot(fetching)
		}
	}
}

// startFetchLocked records the in-flight fetch, spawns it and returns the
// snapshot announcing the fetching state. Caller holds the lock.
func (s *TrackerApplicationService) startFetchLocked(ctx context.Context, force bool) *entity.DashboardSnapshot {
	gen := s.generation
	params := s.params
	s.inFlight = true
	s.inFlightGen = gen

	fetching := s.copySnapshotLocked()
	fetching.State = entity.StateFetching
	fetching.Params = params
	s.snapshot = fetching

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetchAndApply(ctx, gen, params, force)
	}()

	return fetching
}

// copySnapshotLocked clones the current snapshot, or builds an empty one
// carrying the current settings. Caller holds the lock.
func (s *TrackerApplicationService) copySnapshotLocked() *entity.DashboardSnapshot {
	if s.snapshot != nil {
		copied := *s.snapshot
		copied.AutoRefresh = s.autoRefresh
		copied.IntervalSeconds = int(s.interval.Seconds())
		return &copied
	}
	return &entity.DashboardSnapshot{
		State:           entity.StateIdle,
		Params:          s.params,
		AutoRefresh:     s.autoRefresh,
		IntervalSeconds: int(s.interval.Seconds()),
		Transfers:       []*entity.WhaleTransfer{},
		Leaderboard:     []*entity.AddressAggregate{},
		Histogram:       []entity.HistogramBin{},
	}
}

// fetchAndApply runs one refresh. The result applies only while gen still
// matches the current generation; a parameter change in the meantime makes
// this fetch a no-op.
func (s *TrackerApplicationService) fetchAndApply(ctx context.Context, gen uint64, params entity.QueryParams, force bool) {
	if force {
		s.queries.Invalidate(ctx, params)
		s.queries.Invalidate(ctx, params.ForLeaderboard(s.leaderboardLimit))
	}

	transferResult, err := s.queries.WhaleTransfers(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.applyError(gen, params, err)
		return
	}

	lbParams := params.ForLeaderboard(s.leaderboardLimit)
	aggregateResult, aggErr := s.queries.TopAddresses(ctx, lbParams)
	if aggErr != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Leaderboard fetch failed, keeping transfers",
			zap.Error(aggErr))
		aggregateResult = &entity.AggregateResult{Aggregates: []*entity.AddressAggregate{}}
	}

	snap := &entity.DashboardSnapshot{
		State:       entity.StateDisplaying,
		Params:      params,
		UpdatedAt:   transferResult.FetchedAt,
		Stale:       transferResult.Stale || aggregateResult.Stale,
		Summary:     s.stats.Summarize(transferResult.Transfers),
		Transfers:   transferResult.Transfers,
		Leaderboard: aggregateResult.Aggregates,
		Histogram:   s.stats.Histogram(transferResult.Transfers, service.HistogramBins),
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded fetch result",
			zap.Uint64("generation", gen))
		return
	}
	s.inFlight = false
	snap.AutoRefresh = s.autoRefresh
	snap.IntervalSeconds = int(s.interval.Seconds())
	s.snapshot = snap
	alerts := s.collectAlertsLocked(transferResult.Transfers)
	s.mu.Unlock()

	s.logger.Debug("Applied dashboard snapshot",
		zap.Int("transfers", len(snap.Transfers)),
		zap.Int("leaderboard", len(snap.Leaderboard)),
		zap.Bool("stale", snap.Stale))

	s.broadcaster.BroadcastSnapshot(snap)
	s.publishAlerts(ctx, alerts)
}

// applyError moves the dashboard into the error state unless the fetch was
// superseded.
func (s *TrackerApplicationService) applyError(gen uint64, params entity.QueryParams, err error) {
	queryErr, ok := entity.AsQueryError(err)
	if !ok {
		queryErr = entity.NewQueryError(entity.ErrKindServer, err.Error(), err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded fetch error",
			zap.Uint64("generation", gen))
		return
	}
	s.inFlight = false
	snap := &entity.DashboardSnapshot{
		State:           entity.StateError,
		Params:          params,
		AutoRefresh:     s.autoRefresh,
		IntervalSeconds: int(s.interval.Seconds()),
		UpdatedAt:       time.Now().UTC(),
		LastError:       queryErr,
		Transfers:       []*entity.WhaleTransfer{},
		Leaderboard:     []*entity.AddressAggregate{},
		Histogram:       []entity.HistogramBin{},
	}
	s.snapshot = snap
	s.mu.Unlock()

	s.logger.Error("Refresh failed",
		zap.String("kind", string(queryErr.Kind)),
		zap.Error(err))

	s.broadcaster.BroadcastSnapshot(snap)
}

// collectAlertsLocked returns alerts for newly seen transfers at or above
// the alert threshold. Caller holds the lock.
func (s *TrackerApplicationService) collectAlertsLocked(transfers []*entity.WhaleTransfer) []*entity.WhaleAlert {
	if s.alertMinEth <= 0 {
		return nil
	}

	var alerts []*entity.WhaleAlert
	for _, t := range transfers {
		if t.EthAmount < s.alertMinEth {
			continue
		}
		if _, seen := s.seenHashes[t.TransactionHash]; seen {
			continue
		}
		s.seenHashes[t.TransactionHash] = struct{}{}
		s.seenOrder = append(s.seenOrder, t.TransactionHash)
		for len(s.seenOrder) > alertMemory {
			delete(s.seenHashes, s.seenOrder[0])
			s.seenOrder = s.seenOrder[1:]
		}

		alerts = append(alerts, &entity.WhaleAlert{
			ID:              uuid.New().String(),
			TransactionHash: t.TransactionHash,
			FromAddress:     t.FromAddress,
			ToAddress:       t.ToAddress,
			EthAmount:       t.EthAmount,
			BlockNumber:     t.BlockNumber,
			ThresholdEth:    s.alertMinEth,
			ObservedAt:      time.Now().UTC(),
		})
	}
	return alerts
}

func (s *TrackerApplicationService) publishAlerts(ctx context.Context, alerts []*entity.WhaleAlert) {
	for _, alert := range alerts {
		if err := s.alerts.PublishAlert(ctx, alert); err != nil {
			s.logger.Warn("Failed to publish whale alert",
				zap.String("tx_hash", alert.TransactionHash),
				zap.Error(err))
		}
	}
}
