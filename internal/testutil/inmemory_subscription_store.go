package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository. Participants and
// streamings are kept alongside and attached on read.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]

	mu           sync.RWMutex
	participants map[string]*subscription.Participant
	streamings   map[string]*subscription.Streaming
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
		participants:  make(map[string]*subscription.Participant),
		streamings:    make(map[string]*subscription.Streaming),
	}
}

func copySubscription(s *subscription.Subscription) *subscription.Subscription {
	cp := *s
	cp.Participant = nil
	cp.Streaming = nil
	return &cp
}

// Create stores a subscription. Seeding helper, not part of the repository.
func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil || sub.ID == "" {
		return ierr.NewError("subscription ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) AddParticipant(p *subscription.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.participants[p.ID] = &cp
}

func (s *InMemorySubscriptionStore) AddStreaming(st *subscription.Streaming) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.streamings[st.ID] = &cp
}

func (s *InMemorySubscriptionStore) withRelations(sub *subscription.Subscription) *subscription.Subscription {
	out := copySubscription(sub)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.participants[sub.ParticipantID]; ok {
		cp := *p
		out.Participant = &cp
	}
	if st, ok := s.streamings[sub.StreamingID]; ok {
		cp := *st
		out.Streaming = &cp
	}
	return out
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withRelations(sub), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	return s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) ListActiveForBilling(ctx context.Context, accountID string) ([]*subscription.Subscription, error) {
	subs, err := s.InMemoryStore.List(ctx, accountID, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.SubscriptionStatus == types.SubscriptionStatusActive &&
			(accountID == "" || sub.AccountID == accountID)
	}, func(a, b *subscription.Subscription) bool {
		return a.ID < b.ID
	})
	if err != nil {
		return nil, err
	}

	out := make([]*subscription.Subscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, s.withRelations(sub))
	}
	return out, nil
}

func (s *InMemorySubscriptionStore) CompareAndSwapStatus(ctx context.Context, id string, expected, next types.SubscriptionStatus) (bool, error) {
	return s.InMemoryStore.Mutate(id, func(sub *subscription.Subscription) (*subscription.Subscription, bool) {
		if sub.SubscriptionStatus != expected {
			return sub, false
		}
		cp := copySubscription(sub)
		cp.SubscriptionStatus = next
		return cp, true
	})
}

func (s *InMemorySubscriptionStore) Reactivate(ctx context.Context, id string, expected types.SubscriptionStatus) (bool, error) {
	return s.InMemoryStore.Mutate(id, func(sub *subscription.Subscription) (*subscription.Subscription, bool) {
		if sub.SubscriptionStatus != expected {
			return sub, false
		}
		cp := copySubscription(sub)
		cp.Reactivate()
		cp.UpdatedAt = time.Now().UTC()
		return cp, true
	})
}

func (s *InMemorySubscriptionStore) GetParticipant(ctx context.Context, id string) (*subscription.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return nil, ierr.NewErrorf("participant %s not found", id).
			WithHint("Participant not found").
			Mark(ierr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// Clear resets all stored data
func (s *InMemorySubscriptionStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = make(map[string]*subscription.Participant)
	s.streamings = make(map[string]*subscription.Streaming)
}
