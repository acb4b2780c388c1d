package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/middleware"
	"fortune-wheel-backend/internal/services"
)

type RouterDeps struct {
	Engine     WheelService
	Sessions   SessionStore
	Limiter    middleware.RateLimiter
	JWTService *services.JWTService
	Hub        *WebSocketHub
	APIKey     string
	Account    string
	Log        *slog.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	authHandler := NewAuthHandler(d.Sessions, d.JWTService, d.APIKey, d.Account, d.Log)
	userHandler := NewUserHandler(d.Sessions)
	wheelHandler := NewWheelHandler(d.Engine, d.Log)
	wsHandler := NewWebSocketHandler(d.Engine, d.Hub, d.Log)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log), middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		state := d.Engine.State(decimal.NewFromInt(1))
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"connected":      state.Connected,
			"contract_state": state.ContractState,
		})
	})
	router.POST("/auth/token", authHandler.IssueToken)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(d.JWTService, d.Sessions))
	protected.Use(middleware.RateLimitMiddleware(d.Limiter))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		wheel := protected.Group("/wheel")
		{
			wheel.GET("/state", wheelHandler.GetState)
			wheel.POST("/bet", wheelHandler.PlaceBet)
			wheel.POST("/autobet", wheelHandler.AutoBet)
			wheel.POST("/autobet/stop", wheelHandler.StopAutoBet)
			wheel.GET("/result", wheelHandler.GetResult)
			wheel.DELETE("/result", wheelHandler.DismissResult)
			wheel.GET("/history", wheelHandler.GetHistory)
			wheel.GET("/stats", wheelHandler.GetStats)
			wheel.GET("/position", wheelHandler.GetPosition)
		}
	}

	return router
}
