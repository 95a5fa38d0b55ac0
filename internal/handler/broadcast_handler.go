package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/service"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BroadcastHandler exposes the ad-hoc group message operation
type BroadcastHandler struct {
	service *service.BroadcastService
	log     *logger.Logger
}

// NewBroadcastHandler creates a new broadcast handler
func NewBroadcastHandler(service *service.BroadcastService, log *logger.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		service: service,
		log:     log,
	}
}

// Send queues a message for every active player of a game
func (h *BroadcastHandler) Send(c *gin.Context) {
	var req domain.BroadcastRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid request", err))
		return
	}

	gameID, err := primitive.ObjectIDFromHex(req.GameID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid game_id", err))
		return
	}

	broadcastID, queued, err := h.service.SendBroadcast(c.Request.Context(), gameID, req.Message)
	if err != nil {
		if err == apperrors.ErrNotFound {
			c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("game not found", err))
			return
		}
		h.log.Error("Failed to queue broadcast", "error", err)
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("failed to queue broadcast", err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"broadcast_id": broadcastID,
		"queued":       queued,
	})
}
