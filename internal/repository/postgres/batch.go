package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/streamshare/streamshare/internal/domain/batch"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/postgres"
	"github.com/streamshare/streamshare/internal/types"
)

type batchRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewBatchRepository(db *postgres.DB, logger *logger.Logger) batch.Repository {
	return &batchRepository{db: db, logger: logger}
}

func (r *batchRepository) Create(ctx context.Context, b *batch.Batch) error {
	query := `
		INSERT INTO payment_batches (
			id,
			account_id,
			participant_id,
			total_value,
			status,
			proof_url,
			rejection_reason,
			cancellation_reason,
			expires_at,
			created_by,
			created_at,
			updated_at
		) VALUES (
			:id,
			:account_id,
			:participant_id,
			:total_value,
			:status,
			:proof_url,
			:rejection_reason,
			:cancellation_reason,
			:expires_at,
			:created_by,
			:created_at,
			:updated_at
		)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, b); err != nil {
		return ierr.WithError(err).
			WithMessage("failed to create payment batch").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *batchRepository) Get(ctx context.Context, id string) (*batch.Batch, error) {
	var b batch.Batch
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &b, `SELECT * FROM payment_batches WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Payment batch %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithMessage("failed to get payment batch").
			Mark(ierr.ErrDatabase)
	}
	return &b, nil
}

func (r *batchRepository) Update(ctx context.Context, b *batch.Batch) error {
	b.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE payment_batches SET
			total_value = :total_value,
			status = :status,
			proof_url = :proof_url,
			rejection_reason = :rejection_reason,
			cancellation_reason = :cancellation_reason,
			expires_at = :expires_at,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, b)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to update payment batch").
			Mark(ierr.ErrDatabase)
	}
	return expectOneRow(res, "payment batch", b.ID)
}

func (r *batchRepository) CompareAndSwapStatus(ctx context.Context, id string, expected, next types.BatchStatus) (bool, error) {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE payment_batches SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		next, time.Now().UTC(), id, expected)
	if err != nil {
		return false, ierr.WithError(err).
			WithMessage("failed to swap payment batch status").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}

func (r *batchRepository) ListExpired(ctx context.Context, now time.Time) ([]*batch.Batch, error) {
	var batches []*batch.Batch
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &batches,
		`SELECT * FROM payment_batches WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at`,
		types.BatchStatusPending, now)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list expired payment batches").
			Mark(ierr.ErrDatabase)
	}
	return batches, nil
}
