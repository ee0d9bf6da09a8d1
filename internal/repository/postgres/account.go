package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/streamshare/streamshare/internal/domain/account"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/postgres"
	"github.com/streamshare/streamshare/internal/types"
)

type accountRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return &accountRepository{db: db, logger: logger}
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	var a account.Account
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &a, `SELECT * FROM accounts WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Account %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithMessage("failed to get account").
			Mark(ierr.ErrDatabase)
	}
	return &a, nil
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, `
		UPDATE accounts SET
			name = :name,
			email = :email,
			phone = :phone,
			plan = :plan,
			gateway_subscription_id = :gateway_subscription_id,
			currency = :currency,
			updated_at = :updated_at
		WHERE id = :id`, a)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to update account").
			Mark(ierr.ErrDatabase)
	}
	return expectOneRow(res, "account", a.ID)
}

func (r *accountRepository) ListByPlanWithGatewaySubscription(ctx context.Context, plan types.AccountPlan) ([]*account.Account, error) {
	var out []*account.Account
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &out,
		`SELECT * FROM accounts WHERE plan = $1 AND gateway_subscription_id IS NOT NULL ORDER BY id`, plan)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list accounts by plan").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}
