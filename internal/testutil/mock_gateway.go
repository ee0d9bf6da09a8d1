package testutil

import (
	"context"
	"sync"

	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/gateway"
	"github.com/streamshare/streamshare/internal/types"
)

var _ gateway.Gateway = (*MockGateway)(nil)

// MockGateway records calls and mints deterministic PIX charges per idempotency key
type MockGateway struct {
	mu sync.Mutex

	failKeys map[string]error
	statuses map[string]types.GatewaySubscriptionStatus
	charges  map[string]*gateway.PixChargeResult

	PixCalls    int
	StatusCalls int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		failKeys: make(map[string]error),
		statuses: make(map[string]types.GatewaySubscriptionStatus),
		charges:  make(map[string]*gateway.PixChargeResult),
	}
}

// FailFor makes every CreatePixCharge with the given key return err
func (m *MockGateway) FailFor(idempotencyKey string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failKeys, idempotencyKey)
		return
	}
	m.failKeys[idempotencyKey] = err
}

// SetSubscriptionStatus sets what GetSubscriptionStatus reports. An empty status
// makes the lookup fail.
func (m *MockGateway) SetSubscriptionStatus(gatewaySubscriptionID string, status types.GatewaySubscriptionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[gatewaySubscriptionID] = status
}

func (m *MockGateway) CreatePixCharge(ctx context.Context, req *gateway.PixChargeRequest) (*gateway.PixChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PixCalls++
	if err, ok := m.failKeys[req.IdempotencyKey]; ok {
		return nil, err
	}

	if res, ok := m.charges[req.IdempotencyKey]; ok {
		cp := *res
		return &cp, nil
	}

	res := &gateway.PixChargeResult{
		GatewayID:   "pix_" + req.IdempotencyKey,
		Provider:    "mock",
		QRCodeImage: "data:image/png;base64,AAAA",
		QRCodeText:  "00020126" + req.IdempotencyKey,
	}
	m.charges[req.IdempotencyKey] = res
	cp := *res
	return &cp, nil
}

func (m *MockGateway) GetSubscriptionStatus(ctx context.Context, gatewaySubscriptionID string) (*gateway.SubscriptionStatusResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StatusCalls++
	status, ok := m.statuses[gatewaySubscriptionID]
	if !ok || status == "" {
		return nil, ierr.NewErrorf("unknown gateway subscription %s", gatewaySubscriptionID).
			WithHint("Payment gateway could not find the subscription").
			Mark(ierr.ErrHTTPClient)
	}
	return &gateway.SubscriptionStatusResult{Status: status}, nil
}
