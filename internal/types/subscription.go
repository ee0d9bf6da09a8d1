package types

import (
	"fmt"

	ierr "github.com/streamshare/streamshare/internal/errors"
)

// SubscriptionStatus is the lifecycle state of a participant's subscription
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pendente"
	SubscriptionStatusActive    SubscriptionStatus = "ativa"
	SubscriptionStatusSuspended SubscriptionStatus = "suspensa"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelada"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// BillingFrequency is how many months one charge of a subscription covers
type BillingFrequency string

const (
	BillingFrequencyMonthly    BillingFrequency = "mensal"
	BillingFrequencyQuarterly  BillingFrequency = "trimestral"
	BillingFrequencySemiannual BillingFrequency = "semestral"
	BillingFrequencyAnnual     BillingFrequency = "anual"
)

// Months returns the number of months in one period. Unknown values are treated as monthly.
func (f BillingFrequency) Months() int {
	switch f {
	case BillingFrequencyQuarterly:
		return 3
	case BillingFrequencySemiannual:
		return 6
	case BillingFrequencyAnnual:
		return 12
	default:
		return 1
	}
}

func (f BillingFrequency) Validate() error {
	switch f {
	case BillingFrequencyMonthly, BillingFrequencyQuarterly, BillingFrequencySemiannual, BillingFrequencyAnnual:
		return nil
	}
	return ierr.NewError(fmt.Sprintf("invalid billing frequency: %s", f)).
		WithHint("Billing frequency must be one of mensal, trimestral, semestral or anual").
		WithReportableDetails(map[string]any{
			"frequency": f,
		}).
		Mark(ierr.ErrValidation)
}

const (
	SuspensionReasonOverdue = "Cobrança em atraso"
)
