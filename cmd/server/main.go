package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streamshare/streamshare/internal/api"
	"github.com/streamshare/streamshare/internal/api/cron"
	v1 "github.com/streamshare/streamshare/internal/api/v1"
	"github.com/streamshare/streamshare/internal/cache"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/email"
	"github.com/streamshare/streamshare/internal/gateway"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/notifier"
	"github.com/streamshare/streamshare/internal/postgres"
	"github.com/streamshare/streamshare/internal/pubsub"
	"github.com/streamshare/streamshare/internal/pubsub/kafka"
	"github.com/streamshare/streamshare/internal/pubsub/memory"
	pubsubRouter "github.com/streamshare/streamshare/internal/pubsub/router"
	"github.com/streamshare/streamshare/internal/pyroscope"
	"github.com/streamshare/streamshare/internal/repository"
	"github.com/streamshare/streamshare/internal/scheduler"
	"github.com/streamshare/streamshare/internal/sentry"
	"github.com/streamshare/streamshare/internal/service"
	"github.com/streamshare/streamshare/internal/storage"
	"github.com/streamshare/streamshare/internal/types"
	"github.com/streamshare/streamshare/internal/validator"
	"github.com/streamshare/streamshare/internal/whatsapp"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// External collaborators
			provideGateway,
			storage.NewStorage,
			email.NewEmailClient,
			email.NewEmail,
			whatsapp.NewClient,

			// PubSub
			providePubSub,
			providePublisher,
			provideSubscriber,
			pubsubRouter.NewRouter,
			notifier.NewDispatcher,
			notifier.NewConsumer,
		),
		sentry.Module(),
		pyroscope.Module(),
		postgres.Module(),
		repository.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewChargeService,
			service.NewBatchService,
			service.NewBillingService,
			service.NewAccountPlanService,
		),
	)

	// API and scheduler
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
			scheduler.NewScheduler,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideGateway(cfg *config.Configuration, c cache.Cache, logger *logger.Logger) gateway.Gateway {
	return gateway.NewCachedGateway(gateway.NewClient(cfg, logger), c, cfg, logger)
}

func providePubSub(lc fx.Lifecycle, cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	var ps pubsub.PubSub
	switch cfg.PubSub.Backend {
	case types.PubSubBackendKafka:
		kafkaPubSub, err := kafka.NewPubSub(cfg, logger)
		if err != nil {
			return nil, err
		}
		ps = kafkaPubSub
	default:
		ps = memory.NewPubSub(logger)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}

func providePublisher(ps pubsub.PubSub) pubsub.Publisher {
	return ps
}

func provideSubscriber(ps pubsub.PubSub) pubsub.Subscriber {
	return ps
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	db postgres.IClient,
	chargeService service.ChargeService,
	batchService service.BatchService,
	billingService service.BillingService,
	accountPlanService service.AccountPlanService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(db, logger),
		Charge:      v1.NewChargeHandler(chargeService, cfg, logger),
		Batch:       v1.NewBatchHandler(batchService, cfg, logger),
		CronBilling: cron.NewBillingHandler(billingService, logger),
		CronPlans:   cron.NewAccountPlanHandler(accountPlanService, logger),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	sched *scheduler.Scheduler,
	router *pubsubRouter.Router,
	consumer *notifier.Consumer,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		scheduler.RegisterHooks(lc, sched)
		startMessageRouter(lc, router, consumer, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
		// the in-memory backend only delivers to consumers in the same process
		if cfg.PubSub.Backend == types.PubSubBackendMemory {
			startMessageRouter(lc, router, consumer, log)
		}
	case types.ModeScheduler:
		scheduler.RegisterHooks(lc, sched)
		startMessageRouter(lc, router, consumer, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	consumer *notifier.Consumer,
	logger *logger.Logger,
) {
	// Register handlers before starting the router
	consumer.RegisterHandler(router)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting message router")
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping message router")
			return router.Close()
		},
	})
}
