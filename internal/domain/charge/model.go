package charge

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/types"
)

// Charge is the bill of one subscription period
type Charge struct {
	ID                   string              `db:"id" json:"id"`
	SubscriptionID       string              `db:"subscription_id" json:"subscription_id"`
	AccountID            string              `db:"account_id" json:"account_id"`
	Value                decimal.Decimal     `db:"value" json:"value"`
	PeriodStart          time.Time           `db:"period_start" json:"period_start"`
	PeriodEnd            time.Time           `db:"period_end" json:"period_end"`
	DueDate              time.Time           `db:"due_date" json:"due_date"`
	ChargeStatus         types.ChargeStatus  `db:"status" json:"status"`
	PaymentMethod        types.PaymentMethod `db:"payment_method" json:"payment_method"`
	ExternalReference    string              `db:"external_reference" json:"external_reference"`
	PaidAt               *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	ProofURL             *string             `db:"proof_url" json:"proof_url,omitempty"`
	ProofSubmittedAt     *time.Time          `db:"proof_submitted_at" json:"proof_submitted_at,omitempty"`
	GatewayTransactionID *string             `db:"gateway_transaction_id" json:"gateway_transaction_id,omitempty"`
	GatewayProvider      *string             `db:"gateway_provider" json:"gateway_provider,omitempty"`
	PixQRCodeImage       *string             `db:"pix_qr_code_image" json:"pix_qr_code_image,omitempty"`
	PixQRCodeText        *string             `db:"pix_qr_code_text" json:"pix_qr_code_text,omitempty"`
	BatchID              *string             `db:"batch_id" json:"batch_id,omitempty"`
	DeletedAt            *time.Time          `db:"deleted_at" json:"deleted_at,omitempty"`

	// ParticipantID is read through the owning subscription and never written
	ParticipantID string `db:"participant_id" json:"participant_id"`

	types.BaseModel
}

func (c *Charge) IsPaid() bool {
	return c.ChargeStatus == types.ChargeStatusPaid
}

func (c *Charge) IsDeleted() bool {
	return c.DeletedAt != nil
}

// Covers reports whether t falls inside the charge period, both ends inclusive
func (c *Charge) Covers(t time.Time) bool {
	return !t.Before(c.PeriodStart) && !t.After(c.PeriodEnd)
}

// EligibleForBatch reports whether the charge can be grouped into a new batch
func (c *Charge) EligibleForBatch() bool {
	return c.ChargeStatus.IsUnpaid() && c.BatchID == nil && !c.IsDeleted()
}

// ClearProof removes the uploaded proof
func (c *Charge) ClearProof() {
	c.ProofURL = nil
	c.ProofSubmittedAt = nil
}
