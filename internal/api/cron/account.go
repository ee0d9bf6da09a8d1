package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/service"
)

type AccountPlanHandler struct {
	accountPlanService service.AccountPlanService
	logger             *logger.Logger
}

func NewAccountPlanHandler(accountPlanService service.AccountPlanService, logger *logger.Logger) *AccountPlanHandler {
	return &AccountPlanHandler{
		accountPlanService: accountPlanService,
		logger:             logger,
	}
}

// CheckPlanDowngrades moves lapsed pro accounts back to the free plan
func (h *AccountPlanHandler) CheckPlanDowngrades(c *gin.Context) {
	resp, err := h.accountPlanService.CheckPlanDowngrades(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to check plan downgrades", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed plan check cron job",
		"checked", resp.Checked,
		"downgraded", len(resp.Downgraded),
		"failed", len(resp.Failed))

	c.JSON(http.StatusOK, resp)
}
