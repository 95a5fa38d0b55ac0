package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/scheduler"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
)

// SchedulerHandler exposes the scheduler driver's admin operations
type SchedulerHandler struct {
	scheduler *scheduler.ConfirmationScheduler
	log       *logger.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler *scheduler.ConfirmationScheduler, log *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		log:       log,
	}
}

// Status returns the scheduler state and the last run summary
func (h *SchedulerHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// Start starts the periodic tick
func (h *SchedulerHandler) Start(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		h.log.Error("Failed to start scheduler", "error", err)
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("failed to start scheduler", err))
		return
	}

	c.JSON(http.StatusOK, h.scheduler.Status())
}

// Stop stops the periodic tick; an in-flight run completes on its own
func (h *SchedulerHandler) Stop(c *gin.Context) {
	h.scheduler.Stop()
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// SetInterval changes the tick interval
func (h *SchedulerHandler) SetInterval(c *gin.Context) {
	var req domain.SetIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid request", err))
		return
	}

	if err := h.scheduler.SetInterval(req.Minutes); err != nil {
		c.JSON(http.StatusBadRequest, err)
		return
	}

	c.JSON(http.StatusOK, h.scheduler.Status())
}
