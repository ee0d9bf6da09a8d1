package testutil

import (
	"context"
	"sync"

	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/postgres"
	"github.com/streamshare/streamshare/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient is a mock implementation of postgres client for testing.
// Advisory locks are held in process.
type MockPostgresClient struct {
	logger *logger.Logger

	mu    sync.Mutex
	locks map[string]bool
	// TxCount is the number of outermost transactions run
	TxCount int
	// SavepointRollbacks is the number of savepoints whose fn failed
	SavepointRollbacks int
	// PingErr is returned by Ping when set
	PingErr error
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
		locks:  make(map[string]bool),
	}
}

// WithTx executes the given function without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	// If we're already in a transaction, reuse it
	if ctx.Value(types.CtxDBTransaction) != nil {
		return fn(ctx)
	}

	c.mu.Lock()
	c.TxCount++
	c.mu.Unlock()

	return fn(context.WithValue(ctx, types.CtxDBTransaction, "mock_tx"))
}

// WithSavepoint runs fn in the current mock transaction. Writes are not undone on
// failure, the failure is only counted.
func (c *MockPostgresClient) WithSavepoint(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(types.CtxDBTransaction) == nil {
		return c.WithTx(ctx, fn)
	}

	if err := fn(ctx); err != nil {
		c.mu.Lock()
		c.SavepointRollbacks++
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *MockPostgresClient) TryAdvisoryLock(ctx context.Context, key string) (func(), bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locks[key] {
		return nil, false, nil
	}
	c.locks[key] = true

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.locks, key)
	}, true, nil
}

func (c *MockPostgresClient) Ping(ctx context.Context) error {
	return c.PingErr
}

// HoldLock takes the lock as another replica would. The returned func releases it.
func (c *MockPostgresClient) HoldLock(key string) func() {
	release, _, _ := c.TryAdvisoryLock(context.Background(), key)
	if release == nil {
		return func() {}
	}
	return release
}

// IsLocked reports whether key is currently held
func (c *MockPostgresClient) IsLocked(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locks[key]
}
