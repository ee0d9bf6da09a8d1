package testutil

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/streamshare/streamshare/internal/domain/charge"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/types"
)

// InMemoryChargeStore implements charge.Repository. The participant of a charge is
// resolved through the subscription store the same way the SQL join does.
type InMemoryChargeStore struct {
	*InMemoryStore[*charge.Charge]
	subs *InMemorySubscriptionStore
}

func NewInMemoryChargeStore(subs *InMemorySubscriptionStore) *InMemoryChargeStore {
	return &InMemoryChargeStore{
		InMemoryStore: NewInMemoryStore[*charge.Charge](),
		subs:          subs,
	}
}

func copyCharge(c *charge.Charge) *charge.Charge {
	cp := *c
	return &cp
}

func (s *InMemoryChargeStore) withParticipant(ctx context.Context, c *charge.Charge) *charge.Charge {
	out := copyCharge(c)
	if s.subs != nil {
		if sub, err := s.subs.InMemoryStore.Get(ctx, c.SubscriptionID); err == nil {
			out.ParticipantID = sub.ParticipantID
		}
	}
	return out
}

func (s *InMemoryChargeStore) live(ctx context.Context, match func(*charge.Charge) bool) []*charge.Charge {
	items, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, c *charge.Charge, _ interface{}) bool {
		return !c.IsDeleted() && match(c)
	}, func(a, b *charge.Charge) bool {
		if a.PeriodStart.Equal(b.PeriodStart) {
			return a.ID < b.ID
		}
		return a.PeriodStart.Before(b.PeriodStart)
	})
	return items
}

func (s *InMemoryChargeStore) Create(ctx context.Context, c *charge.Charge) error {
	if c == nil || c.ID == "" {
		return ierr.NewError("charge ID cannot be empty").
			Mark(ierr.ErrValidation)
	}

	if !c.IsDeleted() {
		exists, _ := s.ExistsForPeriod(ctx, c.SubscriptionID, c.PeriodStart)
		if exists {
			return ierr.NewErrorf("charge for subscription %s starting %s already exists",
				c.SubscriptionID, c.PeriodStart.Format(time.RFC3339)).
				WithHint("A charge for this period already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}

	return s.InMemoryStore.Create(ctx, c.ID, copyCharge(c))
}

func (s *InMemoryChargeStore) Get(ctx context.Context, id string) (*charge.Charge, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withParticipant(ctx, c), nil
}

func (s *InMemoryChargeStore) Update(ctx context.Context, c *charge.Charge) error {
	return s.InMemoryStore.Update(ctx, c.ID, copyCharge(c))
}

func (s *InMemoryChargeStore) List(ctx context.Context, filter *types.ChargeFilter) ([]*charge.Charge, error) {
	var out []*charge.Charge
	for _, c := range s.live(ctx, func(*charge.Charge) bool { return true }) {
		c = s.withParticipant(ctx, c)
		if filter != nil {
			if len(filter.IDs) > 0 && !lo.Contains(filter.IDs, c.ID) {
				continue
			}
			if filter.SubscriptionID != "" && c.SubscriptionID != filter.SubscriptionID {
				continue
			}
			if filter.ParticipantID != "" && c.ParticipantID != filter.ParticipantID {
				continue
			}
			if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, c.ChargeStatus) {
				continue
			}
			if filter.Unbatched && c.BatchID != nil {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *InMemoryChargeStore) CompareAndSwapStatus(ctx context.Context, id string, expected, next types.ChargeStatus) (bool, error) {
	return s.InMemoryStore.Mutate(id, func(c *charge.Charge) (*charge.Charge, bool) {
		if c.IsDeleted() || c.ChargeStatus != expected {
			return c, false
		}
		cp := copyCharge(c)
		cp.ChargeStatus = next
		cp.UpdatedAt = time.Now().UTC()
		return cp, true
	})
}

func (s *InMemoryChargeStore) ExistsForPeriod(ctx context.Context, subscriptionID string, periodStart time.Time) (bool, error) {
	matches := s.live(ctx, func(c *charge.Charge) bool {
		return c.SubscriptionID == subscriptionID && c.PeriodStart.Equal(periodStart)
	})
	return len(matches) > 0, nil
}

func (s *InMemoryChargeStore) GetLatestBySubscriptionIDs(ctx context.Context, subscriptionIDs []string) (map[string]*charge.Charge, error) {
	out := make(map[string]*charge.Charge)
	for _, c := range s.live(ctx, func(c *charge.Charge) bool { return lo.Contains(subscriptionIDs, c.SubscriptionID) }) {
		if cur, ok := out[c.SubscriptionID]; !ok || c.PeriodEnd.After(cur.PeriodEnd) {
			out[c.SubscriptionID] = s.withParticipant(ctx, c)
		}
	}
	return out, nil
}

func (s *InMemoryChargeStore) GetOldestUnpaidBySubscriptionIDs(ctx context.Context, subscriptionIDs []string, dueBefore time.Time) (map[string]*charge.Charge, error) {
	out := make(map[string]*charge.Charge)
	for _, c := range s.live(ctx, func(c *charge.Charge) bool {
		return lo.Contains(subscriptionIDs, c.SubscriptionID) &&
			c.ChargeStatus.IsUnpaid() &&
			c.DueDate.Before(dueBefore)
	}) {
		if cur, ok := out[c.SubscriptionID]; !ok || c.DueDate.Before(cur.DueDate) {
			out[c.SubscriptionID] = s.withParticipant(ctx, c)
		}
	}
	return out, nil
}

func (s *InMemoryChargeStore) MarkOverdue(ctx context.Context, dueBefore time.Time) (int64, error) {
	var n int64
	for _, c := range s.live(ctx, func(c *charge.Charge) bool {
		return c.ChargeStatus == types.ChargeStatusPending && c.DueDate.Before(dueBefore)
	}) {
		ok, err := s.CompareAndSwapStatus(ctx, c.ID, types.ChargeStatusPending, types.ChargeStatusOverdue)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryChargeStore) AttachToBatch(ctx context.Context, batchID string, chargeIDs []string) (int64, error) {
	var n int64
	for _, id := range lo.Uniq(chargeIDs) {
		ok, err := s.InMemoryStore.Mutate(id, func(c *charge.Charge) (*charge.Charge, bool) {
			if c.BatchID != nil || c.IsDeleted() || !c.ChargeStatus.IsUnpaid() {
				return c, false
			}
			cp := copyCharge(c)
			cp.BatchID = lo.ToPtr(batchID)
			return cp, true
		})
		if err != nil && !ierr.IsNotFound(err) {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryChargeStore) ListByBatch(ctx context.Context, batchID string) ([]*charge.Charge, error) {
	items := s.live(ctx, func(c *charge.Charge) bool {
		return c.BatchID != nil && *c.BatchID == batchID
	})
	return lo.Map(items, func(c *charge.Charge, _ int) *charge.Charge {
		return s.withParticipant(ctx, c)
	}), nil
}
