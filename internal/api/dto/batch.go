package dto

import (
	"github.com/samber/lo"
	"github.com/streamshare/streamshare/internal/domain/batch"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/validator"
)

// CreateBatchRequest groups unpaid charges of one participant
type CreateBatchRequest struct {
	ChargeIDs []string `json:"charge_ids" validate:"required,min=1,dive,required"`
}

func (r *CreateBatchRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if dup := lo.FindDuplicates(r.ChargeIDs); len(dup) > 0 {
		return ierr.NewError("duplicate charge ids").
			WithHint("Each charge can only be listed once").
			WithReportableDetails(map[string]any{
				"charge_ids": dup,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RejectBatchRequest rejects the proof submitted for a batch
type RejectBatchRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (r *RejectBatchRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CancelBatchRequest cancels an open batch
type CancelBatchRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (r *CancelBatchRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// BatchResponse represents a batch with its member charges
type BatchResponse struct {
	*batch.Batch
}

func NewBatchResponse(b *batch.Batch) *BatchResponse {
	return &BatchResponse{Batch: b}
}
