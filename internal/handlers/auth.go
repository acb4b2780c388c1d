package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fortune-wheel-backend/internal/models"
	"fortune-wheel-backend/internal/services"
)

type SessionStore interface {
	StoreSession(ctx context.Context, session *models.APISession, expiry time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*models.APISession, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// AuthHandler trades the operator API key for a session token bound to the
// service's wallet account.
type AuthHandler struct {
	sessions   SessionStore
	jwtService *services.JWTService
	apiKey     string
	account    string
	log        *slog.Logger
}

func NewAuthHandler(sessions SessionStore, jwtService *services.JWTService, apiKey, account string, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		jwtService: jwtService,
		apiKey:     apiKey,
		account:    account,
		log:        log,
	}
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.apiKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "API access is not configured"})
		return
	}

	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.apiKey)) != 1 {
		h.log.Warn("rejected token request", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	now := time.Now()
	session := &models.APISession{
		SessionID:    models.GenerateSessionID(),
		Account:      h.account,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if err := h.sessions.StoreSession(c.Request.Context(), session, h.jwtService.Expiry()); err != nil {
		h.log.Error("failed to store session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, err := h.jwtService.GenerateToken(session.SessionID, session.Account)
	if err != nil {
		h.log.Error("failed to sign token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(h.jwtService.Expiry().Seconds()),
		"account":    session.Account,
	})
}
