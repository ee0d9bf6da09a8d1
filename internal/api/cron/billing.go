package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamshare/streamshare/internal/api/dto"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/service"
)

// BillingHandler triggers the billing jobs from an external scheduler
type BillingHandler struct {
	billingService service.BillingService
	logger         *logger.Logger
}

func NewBillingHandler(billingService service.BillingService, logger *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// ProcessBillingCycle runs one billing cycle. The body is optional.
func (h *BillingHandler) ProcessBillingCycle(c *gin.Context) {
	var req dto.BillingCycleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	h.logger.Infow("starting billing cycle cron job", "account_id", req.AccountID)

	resp, err := h.billingService.ProcessBillingCycle(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorw("failed to process billing cycle", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed billing cycle cron job",
		"skipped", resp.Skipped,
		"renewed", resp.Renewed,
		"suspended", resp.Suspended,
		"cancelled", resp.Cancelled)

	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) ExpireBatches(c *gin.Context) {
	resp, err := h.billingService.ExpireBatches(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to expire batches", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
