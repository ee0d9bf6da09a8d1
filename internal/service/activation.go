package service

import (
	"context"
	"fmt"
	"time"

	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/types"
)

// EvaluateActivation reports whether paying the charge reactivates the subscription:
// the subscription must be suspensa or pendente and the paid period must include now.
func EvaluateActivation(sub *subscription.Subscription, paid *charge.Charge, now time.Time) bool {
	if sub == nil || paid == nil {
		return false
	}

	switch sub.SubscriptionStatus {
	case types.SubscriptionStatusSuspended, types.SubscriptionStatusPending:
	default:
		return false
	}

	return paid.Covers(now.UTC())
}

// ActivationService reactivates subscriptions when a payment covers the present
type ActivationService interface {
	// ActivateIfCovered must run inside the transaction that marks the charge paid.
	// It reports whether the subscription was reactivated.
	ActivateIfCovered(ctx context.Context, sub *subscription.Subscription, paid *charge.Charge) (bool, error)
}

type activationService struct {
	ServiceParams
	notifier *Notifier
	now      func() time.Time
}

func NewActivationService(params ServiceParams) ActivationService {
	return &activationService{
		ServiceParams: params,
		notifier:      NewNotifier(params),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *activationService) ActivateIfCovered(ctx context.Context, sub *subscription.Subscription, paid *charge.Charge) (bool, error) {
	if !EvaluateActivation(sub, paid, s.now()) {
		return false, nil
	}

	previous := sub.SubscriptionStatus
	swapped, err := s.SubRepo.Reactivate(ctx, sub.ID, previous)
	if err != nil {
		return false, err
	}
	if !swapped {
		return false, errStatusChanged("subscription", sub.ID, previous)
	}
	sub.Reactivate()

	if err := s.notifier.Notify(ctx, sub.AccountID, NotifyParams{
		Type:        types.NotificationTypeSubscriptionReactivated,
		Title:       "Assinatura reativada",
		Description: fmt.Sprintf("A assinatura de %s em %s foi reativada após o pagamento.", participantName(sub), sub.StreamingName()),
		EntityID:    sub.ID,
	}); err != nil {
		return false, err
	}

	s.Logger.Infow("subscription reactivated",
		"subscription_id", sub.ID,
		"charge_id", paid.ID,
		"previous_status", previous,
	)
	return true, nil
}
