package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamshare/streamshare/internal/types"
)

// Gateway is the external payment gateway used to mint PIX charges and to check the
// SaaS plan subscriptions of administrator accounts
type Gateway interface {
	// CreatePixCharge mints a PIX QR code. IdempotencyKey makes retries return the same charge.
	CreatePixCharge(ctx context.Context, req *PixChargeRequest) (*PixChargeResult, error)

	GetSubscriptionStatus(ctx context.Context, gatewaySubscriptionID string) (*SubscriptionStatusResult, error)
}

type PixChargeRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	PayerEmail     string          `json:"payer_email,omitempty"`
	DueDate        time.Time       `json:"due_date"`
}

type PixChargeResult struct {
	GatewayID   string `json:"gateway_id"`
	Provider    string `json:"provider"`
	QRCodeImage string `json:"qr_code_image"`
	QRCodeText  string `json:"qr_code_text"`
}

type SubscriptionStatusResult struct {
	Status types.GatewaySubscriptionStatus `json:"status"`
}
