package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vaidarjogo/go-confirmation-service/internal/dlq"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
)

// DLQHandler exposes the dead-letter queue's operator surface
type DLQHandler struct {
	queue      *dlq.DeadLetterQueue
	dispatcher dlq.Dispatcher
	log        *logger.Logger
}

// NewDLQHandler creates a new DLQ handler
func NewDLQHandler(queue *dlq.DeadLetterQueue, dispatcher dlq.Dispatcher, log *logger.Logger) *DLQHandler {
	return &DLQHandler{
		queue:      queue,
		dispatcher: dispatcher,
		log:        log,
	}
}

// List retrieves dead letters with pagination
func (h *DLQHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	letters, total, err := h.queue.GetAll(c.Request.Context(), page, pageSize)
	if err != nil {
		h.log.Error("Failed to list dead letters", "error", err)
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("failed to list dead letters", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      letters,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Requeue re-dispatches a dead letter
func (h *DLQHandler) Requeue(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("id is required", nil))
		return
	}

	if err := h.queue.Requeue(c.Request.Context(), id, h.dispatcher); err != nil {
		h.log.Error("Failed to requeue dead letter", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("failed to requeue dead letter", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "dead letter requeued", "id": id})
}
