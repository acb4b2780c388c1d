package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"fortune-wheel-backend/internal/chain"
	"fortune-wheel-backend/internal/config"
	"fortune-wheel-backend/internal/handlers"
	"fortune-wheel-backend/internal/logger"
	"fortune-wheel-backend/internal/services"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.New(logger.ModeDev).Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.ModeDev).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.ParseMode(cfg.LogMode))

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dep := cfg.Deployment
	for name, addr := range map[string]string{"wheel": dep.WheelAddress, "token": dep.TokenAddress} {
		if !common.IsHexAddress(addr) {
			log.Warn("contract address missing or invalid", "contract", name, "address", addr)
		}
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	connector, err := chain.Dial(dialCtx, chain.Config{
		RPCURL:       cfg.RPCURL,
		PrivateKey:   cfg.PrivateKey,
		ChainID:      dep.ChainID,
		WheelAddress: common.HexToAddress(dep.WheelAddress),
		TokenAddress: common.HexToAddress(dep.TokenAddress),
	}, log)
	cancelDial()
	if err != nil {
		log.Error("failed to set up chain connector", "error", err)
		os.Exit(1)
	}
	defer connector.Close()

	hub := handlers.NewWebSocketHub(log)
	go hub.Run(ctx)

	engine := services.NewWheelEngine(connector, redisService, cfg.Timing, log)
	engine.SetBroadcaster(hub)
	engine.Start(ctx)
	defer engine.Close()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Engine:     engine,
		Sessions:   redisService,
		Limiter:    redisService,
		JWTService: jwtService,
		Hub:        hub,
		APIKey:     cfg.APIKey,
		Account:    engine.Account(),
		Log:        log,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", port, "account", engine.Account())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
}
