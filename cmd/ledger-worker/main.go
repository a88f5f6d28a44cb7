package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/felipeimp22/persona-finances/internal/amqp"
	"github.com/felipeimp22/persona-finances/internal/config"
	"github.com/felipeimp22/persona-finances/internal/core"
	applog "github.com/felipeimp22/persona-finances/internal/log"
	"github.com/felipeimp22/persona-finances/internal/services"
	"github.com/felipeimp22/persona-finances/internal/storage"
)

// The ledger worker materializes each month's bill instances and keeps
// overdue day counters moving, so months stay current even when nobody
// opens the dashboard. The web server does the same work on page load;
// both paths are idempotent.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: "ledger-worker"})
	applog.SetDefault(logger)

	logger.Info("Starting ledger-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		logger.Error("Migrations failed", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Publish change events so web instances drop their cached summaries.
	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	var clock services.Clock

	generator := services.NewInstanceGenerator(repo, repo, repo, publisher, clock)
	sweeper := services.NewOverdueSweeper(repo, publisher, clock)
	tracker := services.NewMonthTracker(generator, sweeper, repo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOnce := func() {
		month := core.MonthKeyOf(clock.Now())
		if err := tracker.InitializeMonth(ctx, month); err != nil {
			logger.Error("Month initialization failed", "error", err, "month", month.String())
			return
		}
		logger.Info("Month initialized", "month", month.String())
	}

	// Run immediately on startup, then on the configured schedule.
	runOnce()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.WorkerSchedule, runOnce); err != nil {
		logger.Error("Invalid worker schedule", "error", err, "schedule", cfg.WorkerSchedule)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Scheduler started", "schedule", cfg.WorkerSchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
	logger.Info("Ledger-worker shutdown complete")
}
