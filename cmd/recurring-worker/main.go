package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"denaro/internal/amqp"
	"denaro/internal/config"
	"denaro/internal/core"
	applog "denaro/internal/log"
	"denaro/internal/services"
	"denaro/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup("recurring-worker")

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP client for publishing generated occurrences. The export worker
	// consumes these and appends them to the spreadsheet.
	var publisher services.ExportPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized, generated occurrences will be exported")
		}
	} else {
		logger.Info("AMQP disabled, generated occurrences export via the pending backstop only")
	}

	generation := services.NewGenerationService(repo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring expense generator configured",
		"interval", cfg.GenerationInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.GenerationInterval)
	defer ticker.Stop()

	// Run an initial pass on startup so a stopped worker catches up
	// immediately instead of waiting a full interval.
	if count, err := generation.Run(ctx, core.Today(time.Now())); err != nil {
		logger.Error("Initial generation failed", "error", err)
	} else {
		logger.Info("Initial generation complete", "expenses_created", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := generation.Run(ctx, core.Today(now))
				if err != nil {
					logger.Error("Periodic generation failed", "error", err)
				} else {
					logger.Info("Periodic generation complete",
						"expenses_created", count,
						"next_check", now.Add(cfg.GenerationInterval).Format("15:04:05"))
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()
	logger.Info("Recurring-worker shutdown complete")
}
