package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/streamshare/streamshare/internal/domain/subscription"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/postgres"
	"github.com/streamshare/streamshare/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

// subscriptionRow scans a subscription joined with its participant and streaming
type subscriptionRow struct {
	subscription.Subscription
	Participant subscription.Participant `db:"participant"`
	Streaming   subscription.Streaming   `db:"streaming"`
}

func (row *subscriptionRow) toDomain() *subscription.Subscription {
	sub := row.Subscription
	p, st := row.Participant, row.Streaming
	sub.Participant = &p
	sub.Streaming = &st
	return &sub
}

const subscriptionSelect = `
	SELECT
		s.*,
		p.id AS "participant.id",
		p.account_id AS "participant.account_id",
		p.user_id AS "participant.user_id",
		p.name AS "participant.name",
		p.email AS "participant.email",
		p.phone AS "participant.phone",
		st.id AS "streaming.id",
		st.account_id AS "streaming.account_id",
		st.name AS "streaming.name",
		st.currency AS "streaming.currency"
	FROM subscriptions s
	JOIN participants p ON p.id = s.participant_id
	JOIN streamings st ON st.id = s.streaming_id`

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var row subscriptionRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, subscriptionSelect+` WHERE s.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Subscription %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithMessage("failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE subscriptions SET
			monthly_value = :monthly_value,
			frequency = :frequency,
			billing_anchor = :billing_anchor,
			auto_renew = :auto_renew,
			auto_charge_paid = :auto_charge_paid,
			cancel_at = :cancel_at,
			suspended_at = :suspended_at,
			suspension_reason = :suspension_reason,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, sub)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	return expectOneRow(res, "subscription", sub.ID)
}

func (r *subscriptionRepository) ListActiveForBilling(ctx context.Context, accountID string) ([]*subscription.Subscription, error) {
	query := subscriptionSelect + ` WHERE s.status = $1`
	args := []any{types.SubscriptionStatusActive}
	if accountID != "" {
		query += ` AND s.account_id = $2`
		args = append(args, accountID)
	}
	query += ` ORDER BY s.id`

	var rows []subscriptionRow
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list active subscriptions").
			Mark(ierr.ErrDatabase)
	}

	subs := make([]*subscription.Subscription, 0, len(rows))
	for i := range rows {
		subs = append(subs, rows[i].toDomain())
	}
	return subs, nil
}

func (r *subscriptionRepository) CompareAndSwapStatus(ctx context.Context, id string, expected, next types.SubscriptionStatus) (bool, error) {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		next, time.Now().UTC(), id, expected)
	if err != nil {
		return false, ierr.WithError(err).
			WithMessage("failed to swap subscription status").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}

func (r *subscriptionRepository) Reactivate(ctx context.Context, id string, expected types.SubscriptionStatus) (bool, error) {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE subscriptions SET
			status = $1,
			suspended_at = NULL,
			suspension_reason = NULL,
			updated_at = $2
		WHERE id = $3 AND status = $4`,
		types.SubscriptionStatusActive, time.Now().UTC(), id, expected)
	if err != nil {
		return false, ierr.WithError(err).
			WithMessage("failed to reactivate subscription").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}

func (r *subscriptionRepository) GetParticipant(ctx context.Context, id string) (*subscription.Participant, error) {
	var p subscription.Participant
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p,
		`SELECT id, account_id, user_id, name, email, phone FROM participants WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Participant %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithMessage("failed to get participant").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}
