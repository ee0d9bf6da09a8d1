package dto

import (
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/validator"
)

// ChargeResponse represents a charge in API responses
type ChargeResponse struct {
	*charge.Charge
}

func NewChargeResponse(c *charge.Charge) *ChargeResponse {
	return &ChargeResponse{Charge: c}
}

// RejectChargeRequest rejects the proof submitted for a charge
type RejectChargeRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (r *RejectChargeRequest) Validate() error {
	return validator.ValidateRequest(r)
}
