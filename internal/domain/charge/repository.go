package charge

import (
	"context"
	"time"

	"github.com/streamshare/streamshare/internal/types"
)

// Repository defines the interface for charge persistence.
// Every method runs inside the transaction carried by ctx when there is one.
type Repository interface {
	Create(ctx context.Context, charge *Charge) error
	Get(ctx context.Context, id string) (*Charge, error)
	Update(ctx context.Context, charge *Charge) error
	List(ctx context.Context, filter *types.ChargeFilter) ([]*Charge, error)

	// CompareAndSwapStatus moves the charge to next only if it is still in expected.
	// It returns false when another writer changed the status first.
	CompareAndSwapStatus(ctx context.Context, id string, expected, next types.ChargeStatus) (bool, error)

	// ExistsForPeriod reports whether a live charge already opens the given period
	ExistsForPeriod(ctx context.Context, subscriptionID string, periodStart time.Time) (bool, error)

	// GetLatestBySubscriptionIDs returns the live charge with the greatest period end per subscription
	GetLatestBySubscriptionIDs(ctx context.Context, subscriptionIDs []string) (map[string]*Charge, error)

	// GetOldestUnpaidBySubscriptionIDs returns the pendente or atrasado charge with the
	// earliest due date before the given instant, per subscription
	GetOldestUnpaidBySubscriptionIDs(ctx context.Context, subscriptionIDs []string, dueBefore time.Time) (map[string]*Charge, error)

	// MarkOverdue flips every pendente charge due before the given instant to atrasado
	MarkOverdue(ctx context.Context, dueBefore time.Time) (int64, error)

	// AttachToBatch sets the batch of the given charges that are still unbatched and
	// returns how many were attached
	AttachToBatch(ctx context.Context, batchID string, chargeIDs []string) (int64, error)

	ListByBatch(ctx context.Context, batchID string) ([]*Charge, error)
}
