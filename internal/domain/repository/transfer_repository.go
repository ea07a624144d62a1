package repository

import (
	"context"

	"amp-whale-tracker/internal/domain/entity"
)

// TransferRepository defines the interface for whale transfer queries
type TransferRepository interface {
	// WhaleTransfers retrieves transfers at or above the threshold within the window
	WhaleTransfers(ctx context.Context, params entity.QueryParams) ([]*entity.WhaleTransfer, error)

	// TopAddresses retrieves per-sender aggregates ranked by total value sent
	TopAddresses(ctx context.Context, params entity.QueryParams) ([]*entity.AddressAggregate, error)
}
