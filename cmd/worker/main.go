package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/libratrack/backend/internal/config"
	"github.com/libratrack/backend/internal/db"
	"github.com/libratrack/backend/internal/jobs"
	"github.com/libratrack/backend/internal/observability"
	postgresrepo "github.com/libratrack/backend/internal/repository/postgres"
	"github.com/libratrack/backend/internal/ws"
)

// Standalone overdue scanner for deployments that keep background work out of
// the api process. The api binary runs the same scanner in-process by default.
func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}

	scanner := jobs.NewScanner(postgresrepo.NewBorrowingRepository(pool), ws.NewHub(), logger)

	ticker := time.NewTicker(cfg.WorkerPollInterval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", "interval", cfg.WorkerPollInterval.String(), "batch_size", cfg.WorkerBatchSize)
	for {
		select {
		case <-sigCtx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			pool.Close(shutdownCtx)
			shutdownCancel()
			logger.Info("worker stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := scanner.RunOnce(runCtx, cfg.WorkerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("overdue scan failed", "err", err)
			}
		}
	}
}
