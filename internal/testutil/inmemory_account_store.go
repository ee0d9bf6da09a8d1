package testutil

import (
	"context"

	"github.com/streamshare/streamshare/internal/domain/account"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/types"
)

// InMemoryAccountStore implements account.Repository
type InMemoryAccountStore struct {
	*InMemoryStore[*account.Account]
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		InMemoryStore: NewInMemoryStore[*account.Account](),
	}
}

// Create stores an account. Seeding helper, not part of the repository.
func (s *InMemoryAccountStore) Create(ctx context.Context, a *account.Account) error {
	if a == nil || a.ID == "" {
		return ierr.NewError("account ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	cp := *a
	return s.InMemoryStore.Create(ctx, a.ID, &cp)
}

func (s *InMemoryAccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	a, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

func (s *InMemoryAccountStore) Update(ctx context.Context, a *account.Account) error {
	cp := *a
	return s.InMemoryStore.Update(ctx, a.ID, &cp)
}

func (s *InMemoryAccountStore) ListByPlanWithGatewaySubscription(ctx context.Context, plan types.AccountPlan) ([]*account.Account, error) {
	items, err := s.InMemoryStore.List(ctx, plan, func(_ context.Context, a *account.Account, _ interface{}) bool {
		return a.Plan == plan && a.GatewaySubscriptionID != nil && *a.GatewaySubscriptionID != ""
	}, func(a, b *account.Account) bool {
		return a.ID < b.ID
	})
	if err != nil {
		return nil, err
	}

	out := make([]*account.Account, 0, len(items))
	for _, a := range items {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}
