package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/vaidarjogo/go-confirmation-service/internal/domain"
	"github.com/vaidarjogo/go-confirmation-service/internal/scheduler"
	"github.com/vaidarjogo/go-confirmation-service/internal/service"
	apperrors "github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConfirmationHandler exposes the engine's run and history operations
type ConfirmationHandler struct {
	service   *service.ConfirmationService
	scheduler *scheduler.ConfirmationScheduler
	log       *logger.Logger
}

// NewConfirmationHandler creates a new confirmation handler
func NewConfirmationHandler(service *service.ConfirmationService, scheduler *scheduler.ConfirmationScheduler, log *logger.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{
		service:   service,
		scheduler: scheduler,
		log:       log,
	}
}

// ProcessAll runs the engine over every active game
func (h *ConfirmationHandler) ProcessAll(c *gin.Context) {
	summary := h.scheduler.RunNow(c.Request.Context())
	c.JSON(http.StatusOK, summary)
}

// ProcessGame runs the engine for a single game
func (h *ConfirmationHandler) ProcessGame(c *gin.Context) {
	gameID, err := primitive.ObjectIDFromHex(c.Param("game_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid game_id", err))
		return
	}

	summary, err := h.service.ProcessGame(c.Request.Context(), gameID)
	if err != nil {
		h.log.Error("Failed to process game", "error", err, "game_id", gameID.Hex())
		status := http.StatusInternalServerError
		if err == apperrors.ErrNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, apperrors.NewInternalError("failed to process game", err))
		return
	}

	c.JSON(http.StatusOK, summary)
}

// SendManual dispatches one ad-hoc confirmation
func (h *ConfirmationHandler) SendManual(c *gin.Context) {
	var req domain.ManualConfirmationRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid request", err))
		return
	}

	gameID, err := primitive.ObjectIDFromHex(req.GameID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid game_id", err))
		return
	}
	playerID, err := primitive.ObjectIDFromHex(req.PlayerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid player_id", err))
		return
	}

	var sessionDate *time.Time
	if req.SessionDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.SessionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, apperrors.NewValidationError("session_date must be RFC3339", err))
			return
		}
		sessionDate = &parsed
	}

	log, err := h.service.SendManual(c.Request.Context(), gameID, playerID, sessionDate)
	if err != nil {
		switch {
		case err == apperrors.ErrAlreadyRecorded:
			c.JSON(http.StatusConflict, gin.H{"message": "confirmation already sent for this session"})
		case err == apperrors.ErrNotFound:
			c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("game, player or session not found", err))
		default:
			h.log.Error("Manual send failed", "error", err)
			c.JSON(http.StatusBadGateway, apperrors.NewInternalError("failed to send confirmation", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "confirmation sent",
		"data":    log,
	})
}

// GetSendLogs retrieves dispatch history
func (h *ConfirmationHandler) GetSendLogs(c *gin.Context) {
	var req domain.GetSendLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid request", err))
		return
	}

	var gameID, playerID *primitive.ObjectID
	if req.GameID != "" {
		id, err := primitive.ObjectIDFromHex(req.GameID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid game_id", err))
			return
		}
		gameID = &id
	}
	if req.PlayerID != "" {
		id, err := primitive.ObjectIDFromHex(req.PlayerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apperrors.NewValidationError("invalid player_id", err))
			return
		}
		playerID = &id
	}

	logs, total, err := h.service.GetSendLogs(c.Request.Context(), gameID, playerID, req.Page, req.PageSize)
	if err != nil {
		h.log.Error("Failed to get send logs", "error", err)
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("failed to get send logs", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      logs,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}
