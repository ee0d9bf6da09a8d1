package repository

import (
	"github.com/streamshare/streamshare/internal/domain/account"
	"github.com/streamshare/streamshare/internal/domain/batch"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/notification"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/postgres"
	postgresRepo "github.com/streamshare/streamshare/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides every repository to the fx graph
func Module() fx.Option {
	return fx.Provide(
		NewSubscriptionRepository,
		NewChargeRepository,
		NewBatchRepository,
		NewNotificationRepository,
		NewAccountRepository,
	)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewChargeRepository(db *postgres.DB, logger *logger.Logger) charge.Repository {
	return postgresRepo.NewChargeRepository(db, logger)
}

func NewBatchRepository(db *postgres.DB, logger *logger.Logger) batch.Repository {
	return postgresRepo.NewBatchRepository(db, logger)
}

func NewNotificationRepository(db *postgres.DB, logger *logger.Logger) notification.Repository {
	return postgresRepo.NewNotificationRepository(db, logger)
}

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return postgresRepo.NewAccountRepository(db, logger)
}
