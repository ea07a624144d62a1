package entity

import (
	"fmt"
	"math"
	"strconv"
)

// Validation bounds for query parameters.
const (
	MinWindowHours = 1
	MaxWindowHours = 24 * 30
	MinLimit       = 1
	MaxLimit       = 1000
)

// QueryParams holds the user-adjustable inputs of the whale queries.
// Values are immutable once constructed; equality defines cache key identity.
type QueryParams struct {
	MinEth      float64 `json:"min_eth"`
	WindowHours int     `json:"window_hours"`
	Limit       int     `json:"limit"`
}

// Validate checks parameter ranges. It fails before any I/O is attempted.
func (p QueryParams) Validate() error {
	if math.IsNaN(p.MinEth) || math.IsInf(p.MinEth, 0) || p.MinEth <= 0 {
		return NewInvalidParameter(fmt.Sprintf("min_eth must be positive, got %v", p.MinEth))
	}
	if p.WindowHours < MinWindowHours || p.WindowHours > MaxWindowHours {
		return NewInvalidParameter(fmt.Sprintf("window_hours must be in [%d, %d], got %d",
			MinWindowHours, MaxWindowHours, p.WindowHours))
	}
	if p.Limit < MinLimit || p.Limit > MaxLimit {
		return NewInvalidParameter(fmt.Sprintf("limit must be in [%d, %d], got %d",
			MinLimit, MaxLimit, p.Limit))
	}
	return nil
}

// Key returns the canonical cache key fragment for these parameters.
func (p QueryParams) Key() string {
	return "min=" + strconv.FormatFloat(p.MinEth, 'f', -1, 64) +
		"&window=" + strconv.Itoa(p.WindowHours) +
		"&limit=" + strconv.Itoa(p.Limit)
}

// ForLeaderboard derives the address aggregation variant of the parameters:
// the observation window is doubled, capped at the maximum, so the ranking
// has more history than the transfer listing, and the row limit is replaced.
func (p QueryParams) ForLeaderboard(limit int) QueryParams {
	window := p.WindowHours * 2
	if window > MaxWindowHours {
		window = MaxWindowHours
	}
	return QueryParams{MinEth: p.MinEth, WindowHours: window, Limit: limit}
}
