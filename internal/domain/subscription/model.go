package subscription

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/types"
)

// Subscription is a participant's share of one streaming service slot
type Subscription struct {
	ID                 string                   `db:"id" json:"id"`
	AccountID          string                   `db:"account_id" json:"account_id"`
	ParticipantID      string                   `db:"participant_id" json:"participant_id"`
	StreamingID        string                   `db:"streaming_id" json:"streaming_id"`
	MonthlyValue       decimal.Decimal          `db:"monthly_value" json:"monthly_value"`
	Frequency          types.BillingFrequency   `db:"frequency" json:"frequency"`
	StartDate          time.Time                `db:"start_date" json:"start_date"`
	BillingAnchor      *time.Time               `db:"billing_anchor" json:"billing_anchor,omitempty"`
	AutoRenew          bool                     `db:"auto_renew" json:"auto_renew"`
	AutoChargePaid     bool                     `db:"auto_charge_paid" json:"auto_charge_paid"`
	CancelAt           *time.Time               `db:"cancel_at" json:"cancel_at,omitempty"`
	SuspendedAt        *time.Time               `db:"suspended_at" json:"suspended_at,omitempty"`
	SuspensionReason   *string                  `db:"suspension_reason" json:"suspension_reason,omitempty"`
	SubscriptionStatus types.SubscriptionStatus `db:"status" json:"status"`

	// Loaded alongside the subscription, never written through it
	Participant *Participant `db:"-" json:"participant,omitempty"`
	Streaming   *Streaming   `db:"-" json:"streaming,omitempty"`

	types.BaseModel
}

// Participant is the person paying for a subscription
type Participant struct {
	ID        string  `db:"id" json:"id"`
	AccountID string  `db:"account_id" json:"account_id"`
	UserID    *string `db:"user_id" json:"user_id,omitempty"`
	Name      string  `db:"name" json:"name"`
	Email     *string `db:"email" json:"email,omitempty"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
}

// Streaming is the shared streaming service slot
type Streaming struct {
	ID        string `db:"id" json:"id"`
	AccountID string `db:"account_id" json:"account_id"`
	Name      string `db:"name" json:"name"`
	Currency  string `db:"currency" json:"currency"`
}

// IsOwnedBy reports whether userID is the participant's login
func (p *Participant) IsOwnedBy(userID string) bool {
	return p != nil && p.UserID != nil && userID != "" && *p.UserID == userID
}

// StreamingName returns the streaming name or a generic label when not loaded
func (s *Subscription) StreamingName() string {
	if s.Streaming == nil || s.Streaming.Name == "" {
		return "assinatura"
	}
	return s.Streaming.Name
}

// Currency returns the billing currency of the subscription
func (s *Subscription) Currency() string {
	if s.Streaming == nil || s.Streaming.Currency == "" {
		return types.DefaultCurrency
	}
	return s.Streaming.Currency
}

// Suspend marks the subscription as suspended for the given reason
func (s *Subscription) Suspend(at time.Time, reason string) {
	s.SubscriptionStatus = types.SubscriptionStatusSuspended
	s.SuspendedAt = &at
	s.SuspensionReason = &reason
}

// Reactivate marks the subscription active and clears any suspension
func (s *Subscription) Reactivate() {
	s.SubscriptionStatus = types.SubscriptionStatusActive
	s.SuspendedAt = nil
	s.SuspensionReason = nil
}
