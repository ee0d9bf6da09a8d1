package account

import (
	"github.com/streamshare/streamshare/internal/types"
)

// Account is an administrator workspace that manages streaming slots and participants
type Account struct {
	ID                    string            `db:"id" json:"id"`
	Name                  string            `db:"name" json:"name"`
	OwnerUserID           string            `db:"owner_user_id" json:"owner_user_id"`
	Email                 *string           `db:"email" json:"email,omitempty"`
	Phone                 *string           `db:"phone" json:"phone,omitempty"`
	Plan                  types.AccountPlan `db:"plan" json:"plan"`
	GatewaySubscriptionID *string           `db:"gateway_subscription_id" json:"gateway_subscription_id,omitempty"`
	Currency              string            `db:"currency" json:"currency"`

	types.BaseModel
}
