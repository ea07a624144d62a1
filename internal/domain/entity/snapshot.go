package entity

import (
	"time"
)

// RefreshState is the refresh loop's lifecycle state.
type RefreshState string

// Refresh loop states.
const (
	StateIdle       RefreshState = "idle"
	StateFetching   RefreshState = "fetching"
	StateDisplaying RefreshState = "displaying"
	StateError      RefreshState = "error"
)

// SummaryMetrics holds headline numbers derived from one transfer result
// set. Unique sender and receiver counts are HyperLogLog estimates.
type SummaryMetrics struct {
	TransferCount   int     `json:"transfer_count"`
	TotalEth        float64 `json:"total_eth"`
	AverageEth      float64 `json:"average_eth"`
	LargestEth      float64 `json:"largest_eth"`
	UniqueSenders   uint64  `json:"unique_senders"`
	UniqueReceivers uint64  `json:"unique_receivers"`
}

// HistogramBin is one bucket of the transfer value distribution.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// DashboardSnapshot is the full state the presentation layer renders. It
// always reflects the most recently completed fetch that was not superseded
// by a parameter change. Snapshots are immutable once applied.
type DashboardSnapshot struct {
	State           RefreshState        `json:"state"`
	Params          QueryParams         `json:"params"`
	AutoRefresh     bool                `json:"auto_refresh"`
	IntervalSeconds int                 `json:"interval_seconds"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Stale           bool                `json:"stale"`
	LastError       *QueryError         `json:"last_error,omitempty"`
	Summary         SummaryMetrics      `json:"summary"`
	Transfers       []*WhaleTransfer    `json:"transfers"`
	Leaderboard     []*AddressAggregate `json:"leaderboard"`
	Histogram       []HistogramBin      `json:"histogram"`
}

// WhaleAlert is published for each newly observed transfer at or above the
// alert threshold.
type WhaleAlert struct {
	ID              string    `json:"id"`
	TransactionHash string    `json:"transaction_hash"`
	FromAddress     string    `json:"from_address"`
	ToAddress       string    `json:"to_address"`
	EthAmount       float64   `json:"eth_amount"`
	BlockNumber     int64     `json:"block_number"`
	ThresholdEth    float64   `json:"threshold_eth"`
	ObservedAt      time.Time `json:"observed_at"`
}
