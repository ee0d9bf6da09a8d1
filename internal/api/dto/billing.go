package dto

import (
	"time"

	"github.com/streamshare/streamshare/internal/validator"
)

// BillingCycleRequest triggers one billing cycle run
type BillingCycleRequest struct {
	// AccountID scopes the run to one account. Empty means every account.
	AccountID string `json:"account_id,omitempty"`

	// ReferenceTime replaces the wall clock for the run. Used for replays and tests.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

func (r *BillingCycleRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// BillingCycleResponse reports what one billing cycle run did
type BillingCycleResponse struct {
	Skipped       bool      `json:"skipped"`
	ReferenceTime time.Time `json:"reference_time"`
	OverdueMarked int64     `json:"overdue_marked"`
	Evaluated     int       `json:"evaluated"`
	Renewed       int       `json:"renewed"`
	Cancelled     int       `json:"cancelled"`
	Suspended     int       `json:"suspended"`
	Deferred      int       `json:"deferred"`
	Duplicates    int       `json:"duplicates"`
}

// ExpireBatchesResponse reports the batches cancelled for outliving their expiry
type ExpireBatchesResponse struct {
	Expired []string `json:"expired"`
	Failed  []string `json:"failed,omitempty"`
}

// PlanCheckResponse reports the outcome of the SaaS plan downgrade check
type PlanCheckResponse struct {
	Checked    int      `json:"checked"`
	Downgraded []string `json:"downgraded"`
	Failed     []string `json:"failed,omitempty"`
}
