package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/api"
	"github.com/hackgods/mindcare/internal/app"
	"github.com/hackgods/mindcare/internal/authz"
	"github.com/hackgods/mindcare/internal/config"
	"github.com/hackgods/mindcare/internal/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.New(cfg.Env)
	defer logger.Sync()

	logger.Info("api-server starting up", zap.String("env", cfg.Env), zap.String("http_port", cfg.HTTPPort))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if cfg.AdminAPIToken == "" {
		logger.Warn("ADMIN_API_TOKEN is empty, admin routes will always answer 403")
	}

	var redisPing api.PingFunc
	if a.Redis != nil {
		redisPing = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	health := api.NewHealthHandler(a.Pool.Ping, redisPing, cfg.Env, version)

	handler := api.NewRouter(api.RouterConfig{
		Service:   a.Service,
		Directory: a.Directory,
		Auth:      authz.NewAuthenticator(cfg.AdminAPIToken).WithTherapistTokens(cfg.TherapistAPITokens),
		Health:    health,
		Logger:    logger,
		Location:  cfg.ClinicTimezone,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
