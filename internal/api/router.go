package api

import (
	"github.com/gin-gonic/gin"
	"github.com/streamshare/streamshare/internal/api/cron"
	v1 "github.com/streamshare/streamshare/internal/api/v1"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/pyroscope"
	"github.com/streamshare/streamshare/internal/rest/middleware"
	"github.com/streamshare/streamshare/internal/types"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Charge      *v1.ChargeHandler
	Batch       *v1.BatchHandler
	CronBilling *cron.BillingHandler
	CronPlans   *cron.AccountPlanHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, pyroscopeSvc *pyroscope.Service) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.PyroscopeMiddleware(pyroscopeSvc),
		middleware.ErrorHandler(),
	)
	router.MaxMultipartMemory = cfg.Billing.MaxProofSizeBytes

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.AuthenticateMiddleware(cfg, logger))
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron")
	cronGroup.Use(middleware.CronAuthMiddleware(cfg, logger))
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	charges := router.Group("/charges")
	{
		charges.GET("/:id", handlers.Charge.GetCharge)
		charges.POST("/:id/proof", handlers.Charge.SubmitProof)
		charges.POST("/:id/approve", handlers.Charge.ApproveCharge)
		charges.POST("/:id/reject", handlers.Charge.RejectCharge)
	}

	batches := router.Group("/batches")
	{
		batches.POST("", handlers.Batch.CreateBatch)
		batches.GET("/:id", handlers.Batch.GetBatch)
		batches.POST("/:id/confirm", handlers.Batch.ConfirmBatch)
		batches.POST("/:id/approve", handlers.Batch.ApproveBatch)
		batches.POST("/:id/reject", handlers.Batch.RejectBatch)
		batches.POST("/:id/cancel", handlers.Batch.CancelBatch)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	router.POST("/billing/cycle", handlers.CronBilling.ProcessBillingCycle)
	router.POST("/batches/expire", handlers.CronBilling.ExpireBatches)
	router.POST("/accounts/plans", handlers.CronPlans.CheckPlanDowngrades)
}
