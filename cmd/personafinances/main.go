package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/felipeimp22/persona-finances/internal/amqp"
	"github.com/felipeimp22/persona-finances/internal/auth"
	"github.com/felipeimp22/persona-finances/internal/config"
	apphttp "github.com/felipeimp22/persona-finances/internal/http"
	applog "github.com/felipeimp22/persona-finances/internal/log"
	"github.com/felipeimp22/persona-finances/internal/services"
	"github.com/felipeimp22/persona-finances/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: "server"})
	applog.SetDefault(logger)

	logger.Info("Starting persona-finances server")

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

	// AMQP is optional: without it writes still work, other processes
	// just never hear about them.
	var publisher services.ChangePublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - ledger change events will not be published")
	}

	var clock services.Clock

	generator := services.NewInstanceGenerator(repo, repo, repo, publisher, clock)
	sweeper := services.NewOverdueSweeper(repo, publisher, clock)
	tracker := services.NewMonthTracker(generator, sweeper, repo, publisher)
	svc := apphttp.Services{
		Tracker:   tracker,
		Bills:     services.NewBillService(repo, repo, repo, publisher, clock),
		Payments:  services.NewPaymentReconciler(repo, repo, repo, publisher, clock),
		Summaries: services.NewMonthSummarizer(repo, repo, repo, repo, repo, repo, clock),
		Income:    services.NewIncomeService(repo, publisher, clock),
		Expenses:  services.NewExpenseService(repo, publisher, clock),
	}

	authenticator, err := auth.NewAuthenticator(cfg.FelipePassword, cfg.CarolPassword)
	if err != nil {
		logger.Error("Failed to initialize authenticator", "error", err)
		os.Exit(1)
	}
	sessions := auth.NewSessionStore(cfg.SessionTTL)

	srv := apphttp.NewServer(":"+cfg.Port, svc, authenticator, sessions, cfg.CacheTTL, clock)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Drop cached month views when another process changes the ledger.
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerChanged(ctx, func(msg *amqp.LedgerChangedMessage) error {
				logger.Info("Ledger changed elsewhere, invalidating caches", "scope", msg.Scope)
				srv.InvalidateAll()
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("AMQP consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting persona-finances server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
