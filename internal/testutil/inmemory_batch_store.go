package testutil

import (
	"context"
	"time"

	"github.com/streamshare/streamshare/internal/domain/batch"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/types"
)

// InMemoryBatchStore implements batch.Repository
type InMemoryBatchStore struct {
	*InMemoryStore[*batch.Batch]
}

func NewInMemoryBatchStore() *InMemoryBatchStore {
	return &InMemoryBatchStore{
		InMemoryStore: NewInMemoryStore[*batch.Batch](),
	}
}

func copyBatch(b *batch.Batch) *batch.Batch {
	cp := *b
	cp.Charges = nil
	return &cp
}

func (s *InMemoryBatchStore) Create(ctx context.Context, b *batch.Batch) error {
	if b == nil || b.ID == "" {
		return ierr.NewError("batch ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, b.ID, copyBatch(b))
}

func (s *InMemoryBatchStore) Get(ctx context.Context, id string) (*batch.Batch, error) {
	b, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyBatch(b), nil
}

func (s *InMemoryBatchStore) Update(ctx context.Context, b *batch.Batch) error {
	return s.InMemoryStore.Update(ctx, b.ID, copyBatch(b))
}

func (s *InMemoryBatchStore) CompareAndSwapStatus(ctx context.Context, id string, expected, next types.BatchStatus) (bool, error) {
	return s.InMemoryStore.Mutate(id, func(b *batch.Batch) (*batch.Batch, bool) {
		if b.BatchStatus != expected {
			return b, false
		}
		cp := copyBatch(b)
		cp.BatchStatus = next
		cp.UpdatedAt = time.Now().UTC()
		return cp, true
	})
}

func (s *InMemoryBatchStore) ListExpired(ctx context.Context, now time.Time) ([]*batch.Batch, error) {
	items, err := s.InMemoryStore.List(ctx, now, func(_ context.Context, b *batch.Batch, _ interface{}) bool {
		return b.IsExpired(now)
	}, func(a, b *batch.Batch) bool {
		return a.ExpiresAt.Before(b.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*batch.Batch, 0, len(items))
	for _, b := range items {
		out = append(out, copyBatch(b))
	}
	return out, nil
}
