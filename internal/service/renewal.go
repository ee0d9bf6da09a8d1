package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/idempotency"
	"github.com/streamshare/streamshare/internal/types"
)

// RenewalAction is the outcome of evaluating one subscription during a billing cycle
type RenewalAction string

const (
	RenewalActionNone            RenewalAction = "none"
	RenewalActionCancelScheduled RenewalAction = "cancel_scheduled"
	RenewalActionSuspend         RenewalAction = "suspend"
	RenewalActionCreateCharge    RenewalAction = "create_charge"
)

// RenewalConfig holds the thresholds of the renewal rules
type RenewalConfig struct {
	// SuspensionThreshold is how long the oldest unpaid charge may be past due
	SuspensionThreshold time.Duration
	// RenewalWindow is how close to the end of the current period the next charge is created
	RenewalWindow time.Duration
	GraceDays     int
}

func NewRenewalConfig(cfg config.BillingConfig) RenewalConfig {
	return RenewalConfig{
		SuspensionThreshold: cfg.SuspensionThreshold,
		RenewalWindow:       cfg.RenewalWindow,
		GraceDays:           cfg.GraceDays,
	}
}

// DefaultRenewalConfig suspends after 3 days overdue and renews 5 days ahead
func DefaultRenewalConfig() RenewalConfig {
	return NewRenewalConfig(config.GetDefaultConfig().Billing)
}

// RenewalInput is everything the decision needs about one subscription
type RenewalInput struct {
	Subscription *subscription.Subscription
	// LatestCharge is the live charge with the greatest period end
	LatestCharge *charge.Charge
	// OldestUnpaid is the pendente or atrasado charge with the earliest past due date
	OldestUnpaid *charge.Charge
}

// ChargeDraft is a charge the cycle wants to create
type ChargeDraft struct {
	SubscriptionID    string
	AccountID         string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	DueDate           time.Time
	Value             decimal.Decimal
	PaymentMethod     types.PaymentMethod
	ExternalReference string

	// SetBillingAnchor is set when the subscription has no anchor yet and this
	// draft's anchor must be stored with the charge
	SetBillingAnchor *time.Time
}

type RenewalDecision struct {
	Action RenewalAction
	Draft  *ChargeDraft
}

var renewalRefs = idempotency.NewGenerator()

// EvaluateRenewal decides what the billing cycle does with a subscription. Rules are
// checked in order and the first match wins.
func EvaluateRenewal(in RenewalInput, now time.Time, cfg RenewalConfig) RenewalDecision {
	sub, latest := in.Subscription, in.LatestCharge
	if sub == nil || latest == nil {
		return RenewalDecision{Action: RenewalActionNone}
	}

	now = now.UTC()
	periodEnded := !latest.PeriodEnd.After(now)

	// cancellation only takes effect once the paid period is over
	if sub.CancelAt != nil && periodEnded {
		return RenewalDecision{Action: RenewalActionCancelScheduled}
	}
	if !sub.AutoRenew && periodEnded {
		return RenewalDecision{Action: RenewalActionCancelScheduled}
	}

	// delinquency is judged on the single oldest overdue charge and wins over renewal
	if oldest := in.OldestUnpaid; oldest != nil && oldest.ChargeStatus.IsUnpaid() && oldest.DueDate.Before(now) {
		if now.Sub(oldest.DueDate) >= cfg.SuspensionThreshold {
			return RenewalDecision{Action: RenewalActionSuspend}
		}
	}

	if sub.AutoRenew && latest.PeriodEnd.Sub(now) <= cfg.RenewalWindow {
		return RenewalDecision{
			Action: RenewalActionCreateCharge,
			Draft:  newChargeDraft(sub, latest, now, cfg),
		}
	}

	return RenewalDecision{Action: RenewalActionNone}
}

func newChargeDraft(sub *subscription.Subscription, latest *charge.Charge, now time.Time, cfg RenewalConfig) *ChargeDraft {
	start := latest.PeriodEnd.UTC()

	draft := &ChargeDraft{
		SubscriptionID: sub.ID,
		AccountID:      sub.AccountID,
		PeriodStart:    start,
		DueDate:        types.DefaultDueDate(now, cfg.GraceDays),
		Value:          types.PeriodCharge(sub.MonthlyValue, sub.Frequency),
		PaymentMethod:  types.PaymentMethodPix,
	}
	if sub.AutoChargePaid {
		draft.PaymentMethod = types.PaymentMethodCreditCard
	}

	// without a stored anchor the current period end fixes the billing day from now on
	anchor := sub.BillingAnchor
	if anchor == nil {
		anchor = &start
		draft.SetBillingAnchor = &start
	}

	draft.PeriodEnd = types.NextDueDate(start, sub.Frequency, anchor)
	draft.ExternalReference = renewalRefs.RenewalReference(sub.ID, start)
	return draft
}

// ToCharge builds the pendente charge for the draft
func (d *ChargeDraft) ToCharge() *charge.Charge {
	return &charge.Charge{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE),
		SubscriptionID:    d.SubscriptionID,
		AccountID:         d.AccountID,
		Value:             d.Value,
		PeriodStart:       d.PeriodStart,
		PeriodEnd:         d.PeriodEnd,
		DueDate:           d.DueDate,
		ChargeStatus:      types.ChargeStatusPending,
		PaymentMethod:     d.PaymentMethod,
		ExternalReference: d.ExternalReference,
		BaseModel:         types.GetDefaultBaseModel(),
	}
}
