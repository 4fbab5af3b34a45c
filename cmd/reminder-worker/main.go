package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/app"
	"github.com/hackgods/mindcare/internal/config"
	"github.com/hackgods/mindcare/internal/logging"
	"github.com/hackgods/mindcare/internal/reminder"
)

// cleanupEvery is how often finished queue entries are pruned.
const cleanupEvery = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.New(cfg.Env)
	defer logger.Sync()

	logger.Info("reminder-worker starting up", zap.String("env", cfg.Env), zap.Duration("interval", cfg.WorkerInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a)
	lastCleanup := time.Now()
	cleanup(rootCtx, a)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, a)
			if time.Since(lastCleanup) >= cleanupEvery {
				cleanup(rootCtx, a)
				lastCleanup = time.Now()
			}
		}
	}
}

func runOnce(ctx context.Context, a *app.App) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	res, err := a.Dispatcher.Run(runCtx, a.DispatchOptions())
	if err != nil {
		a.Logger.Error("reminder run error", zap.Error(err))
		return
	}
	if res.Due > 0 {
		a.Logger.Info("reminder run complete", zap.Duration("took", time.Since(start)), zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	}
}

func cleanup(ctx context.Context, a *app.App) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := a.Scheduler.Cleanup(runCtx, a.Reminders, reminder.DefaultRetention); err != nil {
		a.Logger.Error("reminder cleanup error", zap.Error(err))
	}
}
