package service

import (
	"testing"
	"time"

	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateActivation(t *testing.T) {
	paid := &charge.Charge{
		PeriodStart:  day(2024, time.January, 1),
		PeriodEnd:    day(2024, time.January, 31),
		ChargeStatus: types.ChargeStatusPaid,
	}

	tests := []struct {
		name   string
		status types.SubscriptionStatus
		now    time.Time
		want   bool
	}{
		{name: "suspended inside the period", status: types.SubscriptionStatusSuspended, now: day(2024, time.January, 15), want: true},
		{name: "pending inside the period", status: types.SubscriptionStatusPending, now: day(2024, time.January, 15), want: true},
		{name: "period end is inclusive", status: types.SubscriptionStatusSuspended, now: day(2024, time.January, 31), want: true},
		{name: "past period", status: types.SubscriptionStatusSuspended, now: day(2024, time.February, 1), want: false},
		{name: "already active", status: types.SubscriptionStatusActive, now: day(2024, time.January, 15), want: false},
		{name: "cancelled stays cancelled", status: types.SubscriptionStatusCancelled, now: day(2024, time.January, 15), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &subscription.Subscription{SubscriptionStatus: tt.status}
			assert.Equal(t, tt.want, EvaluateActivation(sub, paid, tt.now))
		})
	}

	assert.False(t, EvaluateActivation(nil, paid, day(2024, time.January, 15)))
	assert.False(t, EvaluateActivation(&subscription.Subscription{SubscriptionStatus: types.SubscriptionStatusSuspended}, nil, day(2024, time.January, 15)))
}
