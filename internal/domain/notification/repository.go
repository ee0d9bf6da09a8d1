package notification

import "context"

// Repository defines the interface for in-app notification persistence
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Notification, error)
}
