package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func renewalSub(opts ...func(*subscription.Subscription)) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 "subs_1",
		AccountID:          "acc_1",
		ParticipantID:      "part_1",
		MonthlyValue:       decimal.NewFromInt(50),
		Frequency:          types.BillingFrequencyMonthly,
		AutoRenew:          true,
		SubscriptionStatus: types.SubscriptionStatusActive,
	}
	for _, opt := range opts {
		opt(sub)
	}
	return sub
}

func renewalCharge(start, end, due time.Time, status types.ChargeStatus) *charge.Charge {
	return &charge.Charge{
		ID:             "cob_" + start.Format("20060102"),
		SubscriptionID: "subs_1",
		PeriodStart:    start,
		PeriodEnd:      end,
		DueDate:        due,
		ChargeStatus:   status,
	}
}

func TestEvaluateRenewal(t *testing.T) {
	cfg := DefaultRenewalConfig()
	now := day(2024, time.March, 10)
	farEnd := now.AddDate(0, 0, 20)
	paidLatest := renewalCharge(now.AddDate(0, 0, -10), farEnd, now.AddDate(0, 0, -10), types.ChargeStatusPaid)

	tests := []struct {
		name   string
		input  RenewalInput
		action RenewalAction
	}{
		{
			name:   "no charge history",
			input:  RenewalInput{Subscription: renewalSub()},
			action: RenewalActionNone,
		},
		{
			name: "two days past due is tolerated",
			input: RenewalInput{
				Subscription: renewalSub(),
				LatestCharge: paidLatest,
				OldestUnpaid: renewalCharge(day(2024, time.February, 1), day(2024, time.March, 1), now.AddDate(0, 0, -2), types.ChargeStatusOverdue),
			},
			action: RenewalActionNone,
		},
		{
			name: "three days past due suspends",
			input: RenewalInput{
				Subscription: renewalSub(),
				LatestCharge: paidLatest,
				OldestUnpaid: renewalCharge(day(2024, time.February, 1), day(2024, time.March, 1), now.AddDate(0, 0, -3), types.ChargeStatusOverdue),
			},
			action: RenewalActionSuspend,
		},
		{
			name: "ten days past due suspends",
			input: RenewalInput{
				Subscription: renewalSub(),
				LatestCharge: paidLatest,
				OldestUnpaid: renewalCharge(day(2024, time.February, 1), day(2024, time.March, 1), now.AddDate(0, 0, -10), types.ChargeStatusPending),
			},
			action: RenewalActionSuspend,
		},
		{
			name: "suspension wins over renewal",
			input: RenewalInput{
				Subscription: renewalSub(),
				LatestCharge: renewalCharge(day(2024, time.February, 12), now.AddDate(0, 0, 2), day(2024, time.February, 12), types.ChargeStatusOverdue),
				OldestUnpaid: renewalCharge(day(2024, time.February, 12), now.AddDate(0, 0, 2), now.AddDate(0, 0, -5), types.ChargeStatusOverdue),
			},
			action: RenewalActionSuspend,
		},
		{
			name: "period ending in six days waits",
			input: RenewalInput{
				Subscription: renewalSub(),
				LatestCharge: renewalCharge(day(2024, time.February, 16), now.AddDate(0, 0, 6), day(2024, time.February, 16), types.ChargeStatusPaid),
			},
			action: RenewalActionNone,
		},
		{
			name: "period ending in five days renews",
			input: RenewalInput{
				Subscription: renewalSub(),
				LatestCharge: renewalCharge(day(2024, time.February, 15), now.AddDate(0, 0, 5), day(2024, time.February, 15), types.ChargeStatusPaid),
			},
			action: RenewalActionCreateCharge,
		},
		{
			name: "ended period without auto renew cancels",
			input: RenewalInput{
				Subscription: renewalSub(func(s *subscription.Subscription) { s.AutoRenew = false }),
				LatestCharge: renewalCharge(day(2024, time.February, 10), now, day(2024, time.February, 10), types.ChargeStatusPaid),
			},
			action: RenewalActionCancelScheduled,
		},
		{
			name: "running period without auto renew is left alone",
			input: RenewalInput{
				Subscription: renewalSub(func(s *subscription.Subscription) { s.AutoRenew = false }),
				LatestCharge: renewalCharge(day(2024, time.February, 12), now.AddDate(0, 0, 2), day(2024, time.February, 12), types.ChargeStatusPaid),
			},
			action: RenewalActionNone,
		},
		{
			name: "scheduled cancellation waits for the period end",
			input: RenewalInput{
				Subscription: renewalSub(func(s *subscription.Subscription) { s.CancelAt = lo.ToPtr(now) }),
				LatestCharge: paidLatest,
			},
			action: RenewalActionNone,
		},
		{
			name: "scheduled cancellation after the period end",
			input: RenewalInput{
				Subscription: renewalSub(func(s *subscription.Subscription) { s.CancelAt = lo.ToPtr(now) }),
				LatestCharge: renewalCharge(day(2024, time.February, 1), day(2024, time.March, 1), day(2024, time.February, 1), types.ChargeStatusPaid),
			},
			action: RenewalActionCancelScheduled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateRenewal(tt.input, now, cfg)
			assert.Equal(t, tt.action, got.Action)
			if tt.action == RenewalActionCreateCharge {
				assert.NotNil(t, got.Draft)
			} else {
				assert.Nil(t, got.Draft)
			}
		})
	}
}

func TestEvaluateRenewal_Draft(t *testing.T) {
	cfg := DefaultRenewalConfig()

	t.Run("first renewal anchors on the previous period end", func(t *testing.T) {
		now := time.Date(2024, time.January, 27, 6, 0, 0, 0, time.UTC)
		latest := renewalCharge(day(2024, time.January, 1), day(2024, time.January, 31), day(2024, time.January, 1), types.ChargeStatusPaid)

		got := EvaluateRenewal(RenewalInput{Subscription: renewalSub(), LatestCharge: latest}, now, cfg)
		require.Equal(t, RenewalActionCreateCharge, got.Action)

		d := got.Draft
		assert.Equal(t, day(2024, time.January, 31), d.PeriodStart)
		assert.Equal(t, day(2024, time.February, 29), d.PeriodEnd)
		assert.Equal(t, day(2024, time.January, 27), d.DueDate)
		assert.True(t, decimal.RequireFromString("50.00").Equal(d.Value))
		assert.Equal(t, types.PaymentMethodPix, d.PaymentMethod)
		require.NotNil(t, d.SetBillingAnchor)
		assert.Equal(t, day(2024, time.January, 31), *d.SetBillingAnchor)
		assert.NotEmpty(t, d.ExternalReference)
	})

	t.Run("stored anchor restores the billing day", func(t *testing.T) {
		now := day(2024, time.February, 26)
		anchor := day(2024, time.January, 31)
		sub := renewalSub(func(s *subscription.Subscription) { s.BillingAnchor = &anchor })
		latest := renewalCharge(day(2024, time.January, 31), day(2024, time.February, 29), day(2024, time.January, 31), types.ChargeStatusPaid)

		got := EvaluateRenewal(RenewalInput{Subscription: sub, LatestCharge: latest}, now, cfg)
		require.Equal(t, RenewalActionCreateCharge, got.Action)
		assert.Equal(t, day(2024, time.March, 31), got.Draft.PeriodEnd)
		assert.Nil(t, got.Draft.SetBillingAnchor)
	})

	t.Run("quarterly value and card payment", func(t *testing.T) {
		now := day(2024, time.March, 28)
		sub := renewalSub(func(s *subscription.Subscription) {
			s.Frequency = types.BillingFrequencyQuarterly
			s.MonthlyValue = decimal.RequireFromString("19.90")
			s.AutoChargePaid = true
		})
		latest := renewalCharge(day(2024, time.January, 1), day(2024, time.April, 1), day(2024, time.January, 1), types.ChargeStatusPaid)

		got := EvaluateRenewal(RenewalInput{Subscription: sub, LatestCharge: latest}, now, cfg)
		require.Equal(t, RenewalActionCreateCharge, got.Action)
		assert.Equal(t, day(2024, time.July, 1), got.Draft.PeriodEnd)
		assert.True(t, decimal.RequireFromString("59.70").Equal(got.Draft.Value))
		assert.Equal(t, types.PaymentMethodCreditCard, got.Draft.PaymentMethod)
	})

	t.Run("same period yields the same external reference", func(t *testing.T) {
		now := time.Date(2024, time.January, 27, 6, 0, 0, 0, time.UTC)
		latest := renewalCharge(day(2024, time.January, 1), day(2024, time.January, 31), day(2024, time.January, 1), types.ChargeStatusPaid)

		first := EvaluateRenewal(RenewalInput{Subscription: renewalSub(), LatestCharge: latest}, now, cfg)
		second := EvaluateRenewal(RenewalInput{Subscription: renewalSub(), LatestCharge: latest}, now.Add(time.Hour), cfg)
		assert.Equal(t, first.Draft.ExternalReference, second.Draft.ExternalReference)
	})
}
