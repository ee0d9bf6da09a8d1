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

type BatchHandler struct {
	batchService service.BatchService
	config       *config.Configuration
	logger       *logger.Logger
}

func NewBatchHandler(batchService service.BatchService, config *config.Configuration, logger *logger.Logger) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		config:       config,
		logger:       logger,
	}
}

// CreateBatch groups unpaid charges of one participant into a lote
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		c.Error(err)
		return
	}

	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.batchService.CreateBatch(c.Request.Context(), actor, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *BatchHandler) GetBatch(c *gin.Context) {
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

	resp, err := h.batchService.GetBatch(c.Request.Context(), actor, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmBatch uploads the comprovante covering every charge of the batch
func (h *BatchHandler) ConfirmBatch(c *gin.Context) {
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

	resp, err := h.batchService.ConfirmBatch(c.Request.Context(), actor, id, file)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) ApproveBatch(c *gin.Context) {
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

	resp, err := h.batchService.ApproveBatch(c.Request.Context(), actor, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) RejectBatch(c *gin.Context) {
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

	var req dto.RejectBatchRequest
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

	resp, err := h.batchService.RejectBatch(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) CancelBatch(c *gin.Context) {
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

	var req dto.CancelBatchRequest
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

	resp, err := h.batchService.CancelBatch(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
