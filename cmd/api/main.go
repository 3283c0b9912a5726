package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/libratrack/backend/internal/config"
	"github.com/libratrack/backend/internal/db"
	bookdomain "github.com/libratrack/backend/internal/domain/book"
	"github.com/libratrack/backend/internal/domain/borrowing"
	"github.com/libratrack/backend/internal/http/handlers"
	"github.com/libratrack/backend/internal/jobs"
	"github.com/libratrack/backend/internal/observability"
	postgresrepo "github.com/libratrack/backend/internal/repository/postgres"
	"github.com/libratrack/backend/internal/server"
	"github.com/libratrack/backend/internal/ws"
)

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

	bookRepo := postgresrepo.NewBookRepository(pool)
	userRepo := postgresrepo.NewUserRepository(pool)
	borrowingRepo := postgresrepo.NewBorrowingRepository(pool)

	bookService := bookdomain.NewService(bookRepo)
	borrowingService := borrowing.NewService(userRepo, bookRepo, borrowingRepo, logger)

	hub := ws.NewHub()
	scanner := jobs.NewScanner(borrowingRepo, hub, logger)

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:           pool,
		BorrowingHandler: handlers.NewBorrowingHandler(borrowingService),
		BookHandler:      handlers.NewBookHandler(bookService),
		WSHandler:        ws.NewHandler(hub),
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runOverdueScanner(sigCtx, logger, scanner, cfg)

	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	pool.Close(shutdownCtx)
	logger.Info("api server stopped")
}

func runOverdueScanner(ctx context.Context, logger *slog.Logger, scanner *jobs.Scanner, cfg config.Config) {
	ticker := time.NewTicker(cfg.WorkerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
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
