package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fortune-wheel-backend/internal/models"
	"fortune-wheel-backend/internal/services"
)

type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*models.APISession, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error)
}

// AuthMiddleware accepts a bearer token, or ?token= for websocket clients,
// and requires its session to still exist.
func AuthMiddleware(jwtService *services.JWTService, sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if _, err := sessions.GetSession(c.Request.Context(), claims.SessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
			c.Abort()
			return
		}

		c.Set("session_id", claims.SessionID)
		c.Set("account", claims.Account)

		c.Next()
	}
}

func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetString("session_id")
		if sessionID == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var limit int
		var action string
		window := time.Minute

		switch {
		case strings.HasSuffix(path, "/wheel/bet"):
			limit = services.DefaultRateLimitBets
			action = "bet"
		case strings.HasSuffix(path, "/wheel/autobet"):
			limit = services.DefaultRateLimitAutoBets
			action = "autobet"
		default:
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), sessionID, action, limit, window)
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
