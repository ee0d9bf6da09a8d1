package batch

import (
	"context"
	"time"

	"github.com/streamshare/streamshare/internal/types"
)

// Repository defines the interface for payment batch persistence
type Repository interface {
	Create(ctx context.Context, batch *Batch) error
	Get(ctx context.Context, id string) (*Batch, error)
	Update(ctx context.Context, batch *Batch) error

	// CompareAndSwapStatus moves the batch to next only if it is still in expected
	CompareAndSwapStatus(ctx context.Context, id string, expected, next types.BatchStatus) (bool, error)

	// ListExpired returns pendente batches whose expiry is not after the given instant
	ListExpired(ctx context.Context, now time.Time) ([]*Batch, error)
}
