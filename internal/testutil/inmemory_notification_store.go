package testutil

import (
	"context"

	"github.com/streamshare/streamshare/internal/domain/notification"
)

// InMemoryNotificationStore implements notification.Repository
type InMemoryNotificationStore struct {
	*InMemoryStore[*notification.Notification]
}

func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{
		InMemoryStore: NewInMemoryStore[*notification.Notification](),
	}
}

func (s *InMemoryNotificationStore) Create(ctx context.Context, n *notification.Notification) error {
	cp := *n
	return s.InMemoryStore.Create(ctx, n.ID, &cp)
}

func (s *InMemoryNotificationStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]*notification.Notification, error) {
	items, err := s.InMemoryStore.List(ctx, accountID, func(_ context.Context, n *notification.Notification, _ interface{}) bool {
		return n.AccountID == accountID
	}, func(a, b *notification.Notification) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// All returns every stored notification oldest first
func (s *InMemoryNotificationStore) All() []*notification.Notification {
	items, _ := s.InMemoryStore.List(context.Background(), nil, nil, func(a, b *notification.Notification) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return items
}
