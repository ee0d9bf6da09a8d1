package postgres

import (
	"context"

	"github.com/streamshare/streamshare/internal/logger"
	sentryService "github.com/streamshare/streamshare/internal/sentry"
)

// SentryClient wraps a client with Sentry spans around transactions and lock attempts
type SentryClient struct {
	client IClient
	sentry *sentryService.Service
	logger *logger.Logger
}

// NewMonitoredClient is the IClient provided to the application
func NewMonitoredClient(db *DB, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return NewSentryClient(NewClient(db, logger), sentry, logger)
}

func NewSentryClient(client IClient, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return &SentryClient{
		client: client,
		sentry: sentry,
		logger: logger,
	}
}

func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	span, spanCtx := c.sentry.StartDBSpan(ctx, "postgres.transaction", nil)
	if span != nil {
		defer span.Finish()
	}
	return c.client.WithTx(spanCtx, fn)
}

func (c *SentryClient) WithSavepoint(ctx context.Context, fn func(context.Context) error) error {
	span, spanCtx := c.sentry.StartDBSpan(ctx, "postgres.savepoint", nil)
	if span != nil {
		defer span.Finish()
	}
	return c.client.WithSavepoint(spanCtx, fn)
}

func (c *SentryClient) TryAdvisoryLock(ctx context.Context, key string) (func(), bool, error) {
	span, spanCtx := c.sentry.StartDBSpan(ctx, "postgres.advisory_lock", map[string]any{
		"key": key,
	})
	if span != nil {
		defer span.Finish()
	}
	return c.client.TryAdvisoryLock(spanCtx, key)
}

func (c *SentryClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
