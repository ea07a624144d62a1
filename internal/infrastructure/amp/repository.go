package amp

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/repository"
	"amp-whale-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// timestampLayouts covers the formats the endpoint emits for timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// TransferRepository implements the domain transfer queries against an Amp
// endpoint: it builds the SQL, executes it, and decodes rows with an
// explicit schema check. A row that does not match the expected schema is a
// parse error, not a permissive coercion.
type TransferRepository struct {
	client  ClientInterface
	builder *QueryBuilder
	logger  *logger.Logger
}

// NewTransferRepository creates an Amp-backed transfer repository
func NewTransferRepository(client ClientInterface, builder *QueryBuilder, log *logger.Logger) repository.TransferRepository {
	return &TransferRepository{
		client:  client,
		builder: builder,
		logger:  log.WithComponent("amp-repository"),
	}
}

// WhaleTransfers retrieves transfers at or above the threshold within the window
func (r *TransferRepository) WhaleTransfers(ctx context.Context, params entity.QueryParams) ([]*entity.WhaleTransfer, error) {
	query, err := r.builder.WhaleTransfersQuery(params)
	if err != nil {
		return nil, err
	}

	table, err := r.client.Execute(ctx, query)
	if err != nil {
		return nil, err
	}

	transfers := make([]*entity.WhaleTransfer, 0, len(table.Rows))
	for i, row := range table.Rows {
		transfer, err := decodeTransfer(row)
		if err != nil {
			return nil, entity.NewQueryError(entity.ErrKindParse,
				fmt.Sprintf("row %d does not match the transfer schema", i), err)
		}
		transfers = append(transfers, transfer)
	}

	r.logger.Debug("Fetched whale transfers",
		zap.Int("rows", len(transfers)),
		zap.Float64("min_eth", params.MinEth),
		zap.Int("window_hours", params.WindowHours))

	return transfers, nil
}

// TopAddresses retrieves per-sender aggregates ranked by total value sent
func (r *TransferRepository) TopAddresses(ctx context.Context, params entity.QueryParams) ([]*entity.AddressAggregate, error) {
	query, err := r.builder.TopAddressesQuery(params)
	if err != nil {
		return nil, err
	}

	table, err := r.client.Execute(ctx, query)
	if err != nil {
		return nil, err
	}

	aggregates := make([]*entity.AddressAggregate, 0, len(table.Rows))
	for i, row := range table.Rows {
		aggregate, err := decodeAggregate(row)
		if err != nil {
			return nil, entity.NewQueryError(entity.ErrKindParse,
				fmt.Sprintf("row %d does not match the aggregate schema", i), err)
		}
		aggregates = append(aggregates, aggregate)
	}

	r.logger.Debug("Fetched top addresses",
		zap.Int("rows", len(aggregates)),
		zap.Int("window_hours", params.WindowHours))

	return aggregates, nil
}

func decodeTransfer(row Row) (*entity.WhaleTransfer, error) {
	timestamp, err := timeField(row, "block_timestamp")
	if err != nil {
		return nil, err
	}
	blockNumber, err := intField(row, "block_number")
	if err != nil {
		return nil, err
	}
	hash, err := stringField(row, "transaction_hash")
	if err != nil {
		return nil, err
	}
	from, err := stringField(row, "from_address")
	if err != nil {
		return nil, err
	}
	to, err := stringField(row, "to_address")
	if err != nil {
		return nil, err
	}
	amount, err := floatField(row, "eth_amount")
	if err != nil {
		return nil, err
	}
	gasGwei, err := floatField(row, "gas_gwei")
	if err != nil {
		return nil, err
	}
	gasUsed, err := intField(row, "gas_used")
	if err != nil {
		return nil, err
	}
	gasFee, err := floatField(row, "gas_fee_eth")
	if err != nil {
		return nil, err
	}

	return &entity.WhaleTransfer{
		BlockTimestamp:  timestamp,
		BlockNumber:     blockNumber,
		TransactionHash: hash,
		FromAddress:     from,
		ToAddress:       to,
		EthAmount:       amount,
		GasGwei:         gasGwei,
		GasUsed:         gasUsed,
		GasFeeEth:       gasFee,
	}, nil
}

func decodeAggregate(row Row) (*entity.AddressAggregate, error) {
	address, err := stringField(row, "from_address")
	if err != nil {
		return nil, err
	}
	count, err := intField(row, "transfer_count")
	if err != nil {
		return nil, err
	}
	total, err := floatField(row, "total_eth_sent")
	if err != nil {
		return nil, err
	}
	avg, err := floatField(row, "avg_eth_per_transfer")
	if err != nil {
		return nil, err
	}
	largest, err := floatField(row, "largest_transfer")
	if err != nil {
		return nil, err
	}

	return &entity.AddressAggregate{
		Address:           address,
		TransferCount:     count,
		TotalEthSent:      total,
		AvgEthPerTransfer: avg,
		LargestTransfer:   largest,
	}, nil
}

func stringField(row Row, name string) (string, error) {
	v, ok := row[name]
	if !ok {
		return "", fmt.Errorf("missing column %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %q has unexpected type %T", name, v)
	}
	return s, nil
}

// floatField accepts JSON numbers and numeric strings; large numeric
// columns are string-encoded by some endpoints.
func floatField(row Row, name string) (float64, error) {
	v, ok := row[name]
	if !ok {
		return 0, fmt.Errorf("missing column %q", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("column %q is not numeric: %q", name, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("column %q has unexpected type %T", name, v)
	}
}

func intField(row Row, name string) (int64, error) {
	f, err := floatField(row, name)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("column %q is not integral: %v", name, f)
	}
	return int64(f), nil
}

func timeField(row Row, name string) (time.Time, error) {
	v, ok := row[name]
	if !ok {
		return time.Time{}, fmt.Errorf("missing column %q", name)
	}
	switch t := v.(type) {
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("column %q is not a timestamp: %q", name, t)
	case float64:
		// Values above 1e12 are epoch milliseconds, below are seconds.
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC(), nil
		}
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("column %q has unexpected type %T", name, v)
	}
}
