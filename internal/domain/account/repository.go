package account

import (
	"context"

	"github.com/streamshare/streamshare/internal/types"
)

// Repository defines the interface for account persistence
type Repository interface {
	Get(ctx context.Context, id string) (*Account, error)
	Update(ctx context.Context, account *Account) error

	// ListByPlanWithGatewaySubscription returns accounts on plan that are billed through the gateway
	ListByPlanWithGatewaySubscription(ctx context.Context, plan types.AccountPlan) ([]*Account, error)
}
