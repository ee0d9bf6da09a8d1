package subscription

import (
	"context"

	"github.com/streamshare/streamshare/internal/types"
)

// Repository defines the interface for subscription persistence
type Repository interface {
	// Get returns the subscription with its participant and streaming loaded
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	// ListActiveForBilling returns every ativa subscription with participant and streaming loaded.
	// An empty accountID means all accounts.
	ListActiveForBilling(ctx context.Context, accountID string) ([]*Subscription, error)

	// CompareAndSwapStatus moves the subscription to next only if it is still in expected
	CompareAndSwapStatus(ctx context.Context, id string, expected, next types.SubscriptionStatus) (bool, error)

	// Reactivate moves the subscription from expected to ativa and clears its suspension
	// in a single write. It reports false when the status is no longer expected.
	Reactivate(ctx context.Context, id string, expected types.SubscriptionStatus) (bool, error)

	GetParticipant(ctx context.Context, id string) (*Participant, error)
}
