package entity

import (
	"time"
)

// WhaleTransfer represents one transaction whose transferred value crossed
// the whale threshold. Rows are append-only within a query result.
type WhaleTransfer struct {
	BlockTimestamp  time.Time `json:"block_timestamp"`
	BlockNumber     int64     `json:"block_number"`
	TransactionHash string    `json:"transaction_hash"`
	FromAddress     string    `json:"from_address"`
	ToAddress       string    `json:"to_address"`
	EthAmount       float64   `json:"eth_amount"`
	GasGwei         float64   `json:"gas_gwei"`
	GasUsed         int64     `json:"gas_used"`
	GasFeeEth       float64   `json:"gas_fee_eth"`
}

// AddressAggregate represents one sender's whale activity over the query
// window. Aggregates are recomputed wholesale on each query, never updated
// incrementally.
type AddressAggregate struct {
	Address           string  `json:"from_address"`
	TransferCount     int64   `json:"transfer_count"`
	TotalEthSent      float64 `json:"total_eth_sent"`
	AvgEthPerTransfer float64 `json:"avg_eth_per_transfer"`
	LargestTransfer   float64 `json:"largest_transfer"`
}
