package types

import (
	"fmt"

	"github.com/samber/lo"
	ierr "github.com/streamshare/streamshare/internal/errors"
)

// ChargeStatus is the payment state of a single charge
type ChargeStatus string

const (
	ChargeStatusPending         ChargeStatus = "pendente"
	ChargeStatusOverdue         ChargeStatus = "atrasado"
	ChargeStatusPaid            ChargeStatus = "pago"
	ChargeStatusCancelled       ChargeStatus = "cancelado"
	ChargeStatusAwaitingApprove ChargeStatus = "aguardando_aprovacao"
)

func (s ChargeStatus) String() string {
	return string(s)
}

// IsUnpaid reports whether the charge still counts as an open debt
func (s ChargeStatus) IsUnpaid() bool {
	return s == ChargeStatusPending || s == ChargeStatusOverdue
}

func (s ChargeStatus) Validate() error {
	allowed := []ChargeStatus{
		ChargeStatusPending,
		ChargeStatusOverdue,
		ChargeStatusPaid,
		ChargeStatusCancelled,
		ChargeStatusAwaitingApprove,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError(fmt.Sprintf("invalid charge status: %s", s)).
			WithHint("Invalid charge status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
				"status":  s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UnpaidChargeStatuses are the statuses that make a charge eligible for a batch
var UnpaidChargeStatuses = []ChargeStatus{ChargeStatusPending, ChargeStatusOverdue}

// PaymentMethod is how a charge is expected to be paid
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// ChargeFilter narrows charge listings
type ChargeFilter struct {
	IDs            []string
	SubscriptionID string
	ParticipantID  string
	Statuses       []ChargeStatus
	Unbatched      bool
}
