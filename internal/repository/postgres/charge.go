package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/streamshare/streamshare/internal/domain/charge"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/postgres"
	"github.com/streamshare/streamshare/internal/types"
)

type chargeRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewChargeRepository(db *postgres.DB, logger *logger.Logger) charge.Repository {
	return &chargeRepository{db: db, logger: logger}
}

// every read joins the subscription to expose the participant
const chargeSelect = `
	SELECT c.*, s.participant_id
	FROM charges c
	JOIN subscriptions s ON s.id = c.subscription_id`

func (r *chargeRepository) Create(ctx context.Context, c *charge.Charge) error {
	query := `
		INSERT INTO charges (
			id,
			subscription_id,
			account_id,
			value,
			period_start,
			period_end,
			due_date,
			status,
			payment_method,
			external_reference,
			paid_at,
			proof_url,
			proof_submitted_at,
			gateway_transaction_id,
			gateway_provider,
			pix_qr_code_image,
			pix_qr_code_text,
			batch_id,
			deleted_at,
			created_at,
			updated_at
		) VALUES (
			:id,
			:subscription_id,
			:account_id,
			:value,
			:period_start,
			:period_end,
			:due_date,
			:status,
			:payment_method,
			:external_reference,
			:paid_at,
			:proof_url,
			:proof_submitted_at,
			:gateway_transaction_id,
			:gateway_provider,
			:pix_qr_code_image,
			:pix_qr_code_text,
			:batch_id,
			:deleted_at,
			:created_at,
			:updated_at
		)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A charge for this period already exists").
				WithReportableDetails(map[string]any{
					"subscription_id": c.SubscriptionID,
					"period_start":    c.PeriodStart,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithMessage("failed to create charge").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *chargeRepository) Get(ctx context.Context, id string) (*charge.Charge, error) {
	var c charge.Charge
	err := r.db.GetQuerier(ctx).GetContext(ctx, &c, chargeSelect+` WHERE c.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Charge %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithMessage("failed to get charge").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *chargeRepository) Update(ctx context.Context, c *charge.Charge) error {
	c.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE charges SET
			value = :value,
			due_date = :due_date,
			status = :status,
			payment_method = :payment_method,
			paid_at = :paid_at,
			proof_url = :proof_url,
			proof_submitted_at = :proof_submitted_at,
			gateway_transaction_id = :gateway_transaction_id,
			gateway_provider = :gateway_provider,
			pix_qr_code_image = :pix_qr_code_image,
			pix_qr_code_text = :pix_qr_code_text,
			batch_id = :batch_id,
			deleted_at = :deleted_at,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to update charge").
			Mark(ierr.ErrDatabase)
	}
	return expectOneRow(res, "charge", c.ID)
}

func (r *chargeRepository) List(ctx context.Context, filter *types.ChargeFilter) ([]*charge.Charge, error) {
	var (
		conds = []string{"c.deleted_at IS NULL"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if len(filter.IDs) > 0 {
			conds = append(conds, "c.id = ANY("+arg(pq.Array(filter.IDs))+")")
		}
		if filter.SubscriptionID != "" {
			conds = append(conds, "c.subscription_id = "+arg(filter.SubscriptionID))
		}
		if filter.ParticipantID != "" {
			conds = append(conds, "s.participant_id = "+arg(filter.ParticipantID))
		}
		if len(filter.Statuses) > 0 {
			statuses := make([]string, len(filter.Statuses))
			for i, s := range filter.Statuses {
				statuses[i] = string(s)
			}
			conds = append(conds, "c.status = ANY("+arg(pq.Array(statuses))+")")
		}
		if filter.Unbatched {
			conds = append(conds, "c.batch_id IS NULL")
		}
	}

	query := chargeSelect + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY c.period_start, c.id"

	var charges []*charge.Charge
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &charges, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list charges").
			Mark(ierr.ErrDatabase)
	}
	return charges, nil
}

func (r *chargeRepository) CompareAndSwapStatus(ctx context.Context, id string, expected, next types.ChargeStatus) (bool, error) {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE charges SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 AND deleted_at IS NULL`,
		next, time.Now().UTC(), id, expected)
	if err != nil {
		return false, ierr.WithError(err).
			WithMessage("failed to swap charge status").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}

func (r *chargeRepository) ExistsForPeriod(ctx context.Context, subscriptionID string, periodStart time.Time) (bool, error) {
	var exists bool
	err := r.db.GetQuerier(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (
			SELECT 1 FROM charges
			WHERE subscription_id = $1 AND period_start = $2 AND deleted_at IS NULL
		)`, subscriptionID, periodStart)
	if err != nil {
		return false, ierr.WithError(err).
			WithMessage("failed to check charge for period").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (r *chargeRepository) GetLatestBySubscriptionIDs(ctx context.Context, subscriptionIDs []string) (map[string]*charge.Charge, error) {
	if len(subscriptionIDs) == 0 {
		return map[string]*charge.Charge{}, nil
	}

	query := `
		SELECT DISTINCT ON (c.subscription_id) c.*, s.participant_id
		FROM charges c
		JOIN subscriptions s ON s.id = c.subscription_id
		WHERE c.subscription_id = ANY($1) AND c.deleted_at IS NULL
		ORDER BY c.subscription_id, c.period_end DESC`

	return r.selectBySubscription(ctx, query, pq.Array(subscriptionIDs))
}

func (r *chargeRepository) GetOldestUnpaidBySubscriptionIDs(ctx context.Context, subscriptionIDs []string, dueBefore time.Time) (map[string]*charge.Charge, error) {
	if len(subscriptionIDs) == 0 {
		return map[string]*charge.Charge{}, nil
	}

	query := `
		SELECT DISTINCT ON (c.subscription_id) c.*, s.participant_id
		FROM charges c
		JOIN subscriptions s ON s.id = c.subscription_id
		WHERE c.subscription_id = ANY($1)
			AND c.deleted_at IS NULL
			AND c.status IN ('pendente', 'atrasado')
			AND c.due_date < $2
		ORDER BY c.subscription_id, c.due_date ASC`

	return r.selectBySubscription(ctx, query, pq.Array(subscriptionIDs), dueBefore)
}

func (r *chargeRepository) selectBySubscription(ctx context.Context, query string, args ...any) (map[string]*charge.Charge, error) {
	var charges []*charge.Charge
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &charges, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to load charges by subscription").
			Mark(ierr.ErrDatabase)
	}

	out := make(map[string]*charge.Charge, len(charges))
	for _, c := range charges {
		out[c.SubscriptionID] = c
	}
	return out, nil
}

func (r *chargeRepository) MarkOverdue(ctx context.Context, dueBefore time.Time) (int64, error) {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE charges SET status = 'atrasado', updated_at = $1
		WHERE status = 'pendente' AND due_date < $2 AND deleted_at IS NULL`,
		time.Now().UTC(), dueBefore)
	if err != nil {
		return 0, ierr.WithError(err).
			WithMessage("failed to mark overdue charges").
			Mark(ierr.ErrDatabase)
	}
	return res.RowsAffected()
}

func (r *chargeRepository) AttachToBatch(ctx context.Context, batchID string, chargeIDs []string) (int64, error) {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE charges SET batch_id = $1, updated_at = $2
		WHERE id = ANY($3)
			AND batch_id IS NULL
			AND deleted_at IS NULL
			AND status IN ('pendente', 'atrasado')`,
		batchID, time.Now().UTC(), pq.Array(chargeIDs))
	if err != nil {
		return 0, ierr.WithError(err).
			WithMessage("failed to attach charges to batch").
			Mark(ierr.ErrDatabase)
	}
	return res.RowsAffected()
}

func (r *chargeRepository) ListByBatch(ctx context.Context, batchID string) ([]*charge.Charge, error) {
	var charges []*charge.Charge
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &charges,
		chargeSelect+` WHERE c.batch_id = $1 ORDER BY c.period_start, c.id`, batchID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list batch charges").
			Mark(ierr.ErrDatabase)
	}
	return charges, nil
}
