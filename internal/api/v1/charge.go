package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamshare/streamshare/internal/api/dto"
	"github.com/streamshare/streamshare/internal/config"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/service"
)

type ChargeHandler struct {
	chargeService service.ChargeService
	config        *config.Configuration
	logger        *logger.Logger
}

func NewChargeHandler(chargeService service.ChargeService, config *config.Configuration, logger *logger.Logger) *ChargeHandler {
	return &ChargeHandler{
		chargeService: chargeService,
		config:        config,
		logger:        logger,
	}
}

// GetCharge returns a charge the caller owns or administers
func (h *ChargeHandler) GetCharge(c *gin.Context) {
	id, err := requireParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	actor, err := actorFromContext(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.chargeService.Get(c.Request.Context(), actor, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitProof uploads the comprovante of a charge and moves it to aguardando_aprovacao
func (h *ChargeHandler) SubmitProof(c *gin.Context) {
	id, err := requireParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	actor, err := actorFromContext(c)
	if err != nil {
		c.Error(err)
		return
	}

	file, err := readProof(c, h.config.Billing.MaxProofSizeBytes)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.chargeService.SubmitProof(c.Request.Context(), actor, id, file)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ChargeHandler) ApproveCharge(c *gin.Context) {
	id, err := requireParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	actor, err := actorFromContext(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.chargeService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ChargeHandler) RejectCharge(c *gin.Context) {
	id, err := requireParam(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	actor, err := actorFromContext(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req dto.RejectChargeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.chargeService.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
