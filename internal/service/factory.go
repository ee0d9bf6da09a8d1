package service

import (
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/domain/account"
	"github.com/streamshare/streamshare/internal/domain/batch"
	"github.com/streamshare/streamshare/internal/domain/charge"
	"github.com/streamshare/streamshare/internal/domain/notification"
	"github.com/streamshare/streamshare/internal/domain/subscription"
	"github.com/streamshare/streamshare/internal/gateway"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/notifier"
	"github.com/streamshare/streamshare/internal/postgres"
	"github.com/streamshare/streamshare/internal/sentry"
	"github.com/streamshare/streamshare/internal/storage"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	SubRepo          subscription.Repository
	ChargeRepo       charge.Repository
	BatchRepo        batch.Repository
	NotificationRepo notification.Repository
	AccountRepo      account.Repository

	// External collaborators
	Gateway    gateway.Gateway
	Storage    storage.Storage
	Dispatcher notifier.Dispatcher
	Sentry     *sentry.Service
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	subRepo subscription.Repository,
	chargeRepo charge.Repository,
	batchRepo batch.Repository,
	notificationRepo notification.Repository,
	accountRepo account.Repository,
	gw gateway.Gateway,
	store storage.Storage,
	dispatcher notifier.Dispatcher,
	sentry *sentry.Service,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		SubRepo:          subRepo,
		ChargeRepo:       chargeRepo,
		BatchRepo:        batchRepo,
		NotificationRepo: notificationRepo,
		AccountRepo:      accountRepo,
		Gateway:          gw,
		Storage:          store,
		Dispatcher:       dispatcher,
		Sentry:           sentry,
	}
}
