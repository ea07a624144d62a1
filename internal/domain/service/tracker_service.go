package service

import (
	"context"

	"amp-whale-tracker/internal/domain/entity"
)

// QueryService defines the interface for cached whale queries
type QueryService interface {
	// WhaleTransfers returns the transfer result for params, served from cache when fresh
	WhaleTransfers(ctx context.Context, params entity.QueryParams) (*entity.TransferResult, error)

	// TopAddresses returns the aggregate result for params, served from cache when fresh
	TopAddresses(ctx context.Context, params entity.QueryParams) (*entity.AggregateResult, error)

	// Invalidate drops cached entries for params so the next call refetches
	Invalidate(ctx context.Context, params entity.QueryParams)
}

// TrackerService defines the interface for the dashboard refresh pipeline
type TrackerService interface {
	// Start launches the refresh loop and performs the initial fetch
	Start(ctx context.Context) error

	// Stop halts the loop and waits for in-flight work to settle
	Stop() error

	// Snapshot returns the most recently applied dashboard snapshot
	Snapshot() *entity.DashboardSnapshot

	// SetParams validates and applies new query parameters, triggering an immediate refresh
	SetParams(ctx context.Context, params entity.QueryParams) error

	// SetAutoRefresh toggles the periodic refresh timer
	SetAutoRefresh(enabled bool)

	// ForceRefresh invalidates current cache entries and refreshes immediately
	ForceRefresh()
}

// SnapshotBroadcaster pushes applied snapshots to connected dashboard clients
type SnapshotBroadcaster interface {
	// BroadcastSnapshot delivers a snapshot to every connected client
	BroadcastSnapshot(snapshot *entity.DashboardSnapshot)
}

// AlertPublisher publishes whale alerts to downstream consumers
type AlertPublisher interface {
	// PublishAlert delivers one alert; implementations may drop when disabled
	PublishAlert(ctx context.Context, alert *entity.WhaleAlert) error
}
