package service

import (
	"amp-whale-tracker/internal/domain/entity"

	"github.com/axiomhq/hyperloglog"
)

// HistogramBins is the bucket count of the value distribution chart.
const HistogramBins = 20

// StatsService derives summary metrics and chart series from query results.
// It is pure computation over entities and performs no I/O.
type StatsService struct{}

// NewStatsService creates a new stats service
func NewStatsService() *StatsService {
	return &StatsService{}
}

// Summarize computes headline metrics for a transfer result set. Unique
// sender and receiver counts are HyperLogLog estimates, which keeps the
// cost flat no matter how many distinct addresses appear.
func (s *StatsService) Summarize(transfers []*entity.WhaleTransfer) entity.SummaryMetrics {
	metrics := entity.SummaryMetrics{TransferCount: len(transfers)}
	if len(transfers) == 0 {
		return metrics
	}

	senders := hyperloglog.New14()
	receivers := hyperloglog.New14()
	for _, t := range transfers {
		metrics.TotalEth += t.EthAmount
		if t.EthAmount > metrics.LargestEth {
			metrics.LargestEth = t.EthAmount
		}
		senders.Insert([]byte(t.FromAddress))
		receivers.Insert([]byte(t.ToAddress))
	}
	metrics.AverageEth = metrics.TotalEth / float64(len(transfers))
	metrics.UniqueSenders = senders.Estimate()
	metrics.UniqueReceivers = receivers.Estimate()
	return metrics
}

// Histogram buckets transfer values into evenly sized bins across the
// observed range. A degenerate range collapses into a single bin.
func (s *StatsService) Histogram(transfers []*entity.WhaleTransfer, bins int) []entity.HistogramBin {
	if len(transfers) == 0 || bins <= 0 {
		return nil
	}

	low, high := transfers[0].EthAmount, transfers[0].EthAmount
	for _, t := range transfers[1:] {
		if t.EthAmount < low {
			low = t.EthAmount
		}
		if t.EthAmount > high {
			high = t.EthAmount
		}
	}

	if high == low {
		return []entity.HistogramBin{{Low: low, High: high, Count: len(transfers)}}
	}

	width := (high - low) / float64(bins)
	out := make([]entity.HistogramBin, bins)
	for i := range out {
		out[i].Low = low + float64(i)*width
		out[i].High = low + float64(i+1)*width
	}
	for _, t := range transfers {
		idx := int((t.EthAmount - low) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}
