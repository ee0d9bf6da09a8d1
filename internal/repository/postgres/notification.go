package postgres

import (
	"context"

	"github.com/streamshare/streamshare/internal/domain/notification"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/postgres"
)

type notificationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewNotificationRepository(db *postgres.DB, logger *logger.Logger) notification.Repository {
	return &notificationRepository{db: db, logger: logger}
}

func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (
			id, account_id, type, title, description, target_user_id, entity_id, read, created_at
		) VALUES (
			:id, :account_id, :type, :title, :description, :target_user_id, :entity_id, :read, :created_at
		)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, n); err != nil {
		return ierr.WithError(err).
			WithMessage("failed to create notification").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *notificationRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	var out []*notification.Notification
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &out,
		`SELECT * FROM notifications WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list notifications").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}
