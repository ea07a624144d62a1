package amp

import (
	"fmt"
	"math"
	"math/big"

	"amp-whale-tracker/internal/domain/entity"
)

// MinTransferCount is the activity floor for the address leaderboard: a
// sender must appear at least this often in the window to be ranked.
const MinTransferCount = 2

const whaleTransfersTemplate = `SELECT
    timestamp AS block_timestamp,
    block_num AS block_number,
    tx_hash AS transaction_hash,
    "from" AS from_address,
    "to" AS to_address,
    CAST(value AS DOUBLE) / 1e18 AS eth_amount,
    CAST(gas_price AS DOUBLE) / 1e9 AS gas_gwei,
    gas_used,
    (CAST(gas_price AS DOUBLE) * CAST(gas_used AS DOUBLE)) / 1e18 AS gas_fee_eth
FROM %s
WHERE CAST(value AS DOUBLE) >= %s
  AND timestamp > NOW() - INTERVAL '%d hours'
  AND "to" IS NOT NULL
ORDER BY timestamp DESC
LIMIT %d`

const whaleCountTemplate = `SELECT COUNT(*) AS whale_count
FROM %s
WHERE CAST(value AS DOUBLE) >= %s
  AND "to" IS NOT NULL`

const topAddressesTemplate = `SELECT
    "from" AS from_address,
    COUNT(*) AS transfer_count,
    SUM(CAST(value AS DOUBLE) / 1e18) AS total_eth_sent,
    AVG(CAST(value AS DOUBLE) / 1e18) AS avg_eth_per_transfer,
    MAX(CAST(value AS DOUBLE) / 1e18) AS largest_transfer
FROM %s
WHERE CAST(value AS DOUBLE) >= %s
  AND timestamp > NOW() - INTERVAL '%d hours'
  AND "to" IS NOT NULL
GROUP BY "from"
HAVING COUNT(*) >= %d
ORDER BY total_eth_sent DESC
LIMIT %d`

// QueryBuilder formats the two fixed whale query shapes against a dataset.
// Parameters are validated and rendered as numeric literals only, so user
// input never reaches the query text as raw strings.
type QueryBuilder struct {
	dataset string
}

// NewQueryBuilder creates a query builder for a dataset table reference
func NewQueryBuilder(dataset string) *QueryBuilder {
	return &QueryBuilder{dataset: dataset}
}

// WhaleTransfersQuery builds the transfer listing query
func (b *QueryBuilder) WhaleTransfersQuery(params entity.QueryParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(whaleTransfersTemplate,
		b.table(), WeiLiteral(params.MinEth), params.WindowHours, params.Limit), nil
}

// TopAddressesQuery builds the address aggregation query
func (b *QueryBuilder) TopAddressesQuery(params entity.QueryParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(topAddressesTemplate,
		b.table(), WeiLiteral(params.MinEth), params.WindowHours, MinTransferCount, params.Limit), nil
}

// WhaleCountQuery builds an unwindowed count of transfers at or above the
// threshold
func (b *QueryBuilder) WhaleCountQuery(minEth float64) (string, error) {
	if math.IsNaN(minEth) || math.IsInf(minEth, 0) || minEth <= 0 {
		return "", entity.NewInvalidParameter(fmt.Sprintf("min_eth must be positive, got %v", minEth))
	}
	return fmt.Sprintf(whaleCountTemplate, b.table(), WeiLiteral(minEth)), nil
}

// table returns the quoted dataset table reference.
func (b *QueryBuilder) table() string {
	return fmt.Sprintf("%q.transactions", b.dataset)
}

// WeiLiteral renders an ETH amount as an exact integer wei literal. The
// multiplication runs at high precision so large thresholds do not pick up
// float rounding in the query text.
func WeiLiteral(eth float64) string {
	wei := new(big.Float).SetPrec(256).SetFloat64(eth)
	wei.Mul(wei, big.NewFloat(1e18))
	return wei.Text('f', 0)
}
