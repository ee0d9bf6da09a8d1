package postgres

import (
	"context"
	"fmt"
	"time"

	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"go.uber.org/fx"
)

// IClient is the unit of work shared by every repository. Repositories resolve their
// querier from the context, so any set of them joins the transaction opened by WithTx.
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// WithSavepoint runs fn inside a savepoint of the open transaction. A failing fn rolls
	// back only its own writes and the outer transaction stays usable. Without an open
	// transaction it behaves like WithTx.
	WithSavepoint(ctx context.Context, fn func(context.Context) error) error

	// TryAdvisoryLock takes a session level advisory lock on key without waiting.
	// When acquired is true the caller must call release once done.
	TryAdvisoryLock(ctx context.Context, key string) (release func(), acquired bool, err error)

	// Ping checks that the database accepts connections
	Ping(ctx context.Context) error
}

// Client implements IClient on top of the sqlx pool
type Client struct {
	db     *DB
	logger *logger.Logger
}

// Module provides the database pool and the client to the fx graph
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewMonitoredClient,
		),
		fx.Invoke(func(lc fx.Lifecycle, db *DB) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					db.Close()
					return nil
				},
			})
		}),
	)
}

func NewClient(db *DB, logger *logger.Logger) IClient {
	return &Client{db: db, logger: logger}
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// reuse an outer transaction as is, only the outermost caller commits
	if _, ok := GetTx(ctx); ok {
		return fn(ctx)
	}

	err := c.db.WithTx(ctx, fn)
	if err != nil {
		c.logger.Errorw("rolled back transaction", "error", err)
		return err
	}

	c.logger.Debugw("committed transaction")
	return nil
}

func (c *Client) WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GetTx(ctx); !ok {
		return c.WithTx(ctx, fn)
	}

	if err := c.db.WithTx(ctx, fn); err != nil {
		c.logger.Warnw("rolled back to savepoint", "error", err)
		return err
	}
	return nil
}

// TryAdvisoryLock pins one pooled connection for the lifetime of the lock since
// session locks belong to the connection that took them.
func (c *Client) TryAdvisoryLock(ctx context.Context, key string) (func(), bool, error) {
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Could not reserve a database connection").
			Mark(ierr.ErrDatabase)
	}

	var acquired bool
	if err := conn.QueryRowxContext(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, ierr.WithError(err).
			WithMessage(fmt.Sprintf("failed to acquire advisory lock %s", key)).
			Mark(ierr.ErrDatabase)
	}

	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	c.logger.Debugw("advisory lock acquired", "key", key)

	release := func() {
		// the caller's context may already be done when the run times out
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
			c.logger.Errorw("failed to release advisory lock", "key", key, "error", err)
		}
		if err := conn.Close(); err != nil {
			c.logger.Errorw("failed to return lock connection", "key", key, "error", err)
		}
		c.logger.Debugw("advisory lock released", "key", key)
	}

	return release, true, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return ierr.WithError(err).
			WithHint("Database is unavailable").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Querier returns the querier bound to the context's transaction, if any
func (c *Client) Querier(ctx context.Context) Querier {
	return c.db.GetQuerier(ctx)
}
