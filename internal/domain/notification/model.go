package notification

import (
	"time"

	"github.com/streamshare/streamshare/internal/types"
)

// Notification is an in-app notification shown to the users of an account
type Notification struct {
	ID           string                 `db:"id" json:"id"`
	AccountID    string                 `db:"account_id" json:"account_id"`
	Type         types.NotificationType `db:"type" json:"type"`
	Title        string                 `db:"title" json:"title"`
	Description  string                 `db:"description" json:"description"`
	TargetUserID *string                `db:"target_user_id" json:"target_user_id,omitempty"`
	EntityID     string                 `db:"entity_id" json:"entity_id"`
	Read         bool                   `db:"read" json:"read"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}
