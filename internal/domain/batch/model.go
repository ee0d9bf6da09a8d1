package batch

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/types"
)

// Batch groups unpaid charges of one participant so they can be paid with a single transfer
type Batch struct {
	ID                 string            `db:"id" json:"id"`
	AccountID          string            `db:"account_id" json:"account_id"`
	ParticipantID      string            `db:"participant_id" json:"participant_id"`
	TotalValue         decimal.Decimal   `db:"total_value" json:"total_value"`
	BatchStatus        types.BatchStatus `db:"status" json:"status"`
	ProofURL           *string           `db:"proof_url" json:"proof_url,omitempty"`
	RejectionReason    *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CancellationReason *string           `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ExpiresAt          time.Time         `db:"expires_at" json:"expires_at"`
	CreatedBy          string            `db:"created_by" json:"created_by"`

	Charges []*charge.Charge `db:"-" json:"charges,omitempty"`

	types.BaseModel
}

func (b *Batch) IsPaid() bool {
	return b.BatchStatus == types.BatchStatusPaid
}

// IsExpired reports whether a pendente batch outlived its expiry
func (b *Batch) IsExpired(now time.Time) bool {
	return b.BatchStatus == types.BatchStatusPending && !now.Before(b.ExpiresAt)
}
