package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/models"
	"fortune-wheel-backend/internal/services"
	"fortune-wheel-backend/internal/wheel"
)

// WheelService is what the HTTP layer needs from the engine.
type WheelService interface {
	State(amount decimal.Decimal) *models.RoundState
	PlaceBet(ctx context.Context, req *models.BetRequest) (*models.BetReceipt, error)
	AutoBet(req *models.AutoBetRequest) error
	StopAutoBet() bool
	LastResult() *models.GameResult
	DismissResult()
	History(ctx context.Context, limit int64) ([]*models.GameResult, error)
	Stats(ctx context.Context) (*models.GameStats, error)
}

type WheelHandler struct {
	engine WheelService
	log    *slog.Logger
}

func NewWheelHandler(engine WheelService, log *slog.Logger) *WheelHandler {
	return &WheelHandler{engine: engine, log: log}
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var betErr *services.BetError
	switch {
	case errors.Is(err, services.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrBetRefused),
		errors.Is(err, services.ErrSpinInProgress),
		errors.Is(err, services.ErrAutoBetRunning):
		return http.StatusConflict
	case errors.Is(err, services.ErrEngineClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &betErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetState reports the round state. The gate is evaluated for ?amount=,
// which defaults to 1 token.
func (h *WheelHandler) GetState(c *gin.Context) {
	amount, err := decimal.NewFromString(c.DefaultQuery("amount", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid amount",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   h.engine.State(amount),
	})
}

func (h *WheelHandler) PlaceBet(c *gin.Context) {
	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	receipt, err := h.engine.PlaceBet(c.Request.Context(), &req)
	if err != nil {
		h.log.Warn("bet rejected", "error", err)
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to place bet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     receipt,
	})
}

func (h *WheelHandler) AutoBet(c *gin.Context) {
	var req models.AutoBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.engine.AutoBet(&req); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to start auto bet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":        true,
		"number_of_bets": req.NumberOfBets,
	})
}

func (h *WheelHandler) StopAutoBet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stopped": h.engine.StopAutoBet(),
	})
}

func (h *WheelHandler) GetResult(c *gin.Context) {
	result := h.engine.LastResult()
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No result available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *WheelHandler) DismissResult(c *gin.Context) {
	h.engine.DismissResult()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WheelHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(services.DefaultHistoryLen)), 10, 64)
	if err != nil || limit < 1 || limit > services.MaxHistory {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	games, err := h.engine.History(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to load history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   games,
		"count":   len(games),
	})
}

func (h *WheelHandler) GetStats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get stats",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// GetPosition returns the resting angle for a segment index.
func (h *WheelHandler) GetPosition(c *gin.Context) {
	segment, err1 := strconv.Atoi(c.Query("segment"))
	segments, err2 := strconv.Atoi(c.Query("segments"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segment and segments must be integers"})
		return
	}

	angle, err := wheel.TargetAngle(segment, segments)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid position",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.PositionResponse{
		SegmentIndex: segment,
		Segments:     segments,
		SegmentAngle: wheel.SegmentAngle(segments),
		TargetAngle:  angle,
	})
}
