package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"seatwise/cmd/consumers/handlers"
	"seatwise/cmd/consumers/jobs"
	"seatwise/internal/config"
	"seatwise/internal/consumers"
	"seatwise/internal/logger"
	"seatwise/internal/service"
)

const searchQueue = "search-sync"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Separate client id so the API and consumers can share one cluster
	cfg.NATS.ClientID = "seatwise-consumers"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting consumers service...")

	consumerService, err := consumers.NewConsumerService(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}
	backends := consumerService.Backends()

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	if backends.Search != nil && backends.NATS != nil {
		indexer := handlers.NewSearchSyncHandler(backends.Store, backends.Search)
		for _, subject := range indexer.Subjects() {
			if err := consumerService.Subscribe(subject, searchQueue, indexer.Handle); err != nil {
				logger.Fatal("Failed to start search sync", "error", err)
			}
		}
	}

	audit := jobs.NewLedgerAuditJob(service.NewAuditor(backends.Store, backends.Metrics), cfg.AuditInterval)
	if err := audit.Start(ctx); err != nil {
		logger.Fatal("Failed to start ledger audit", "error", err)
	}

	slog.Info("Consumers service started successfully")
	<-ctx.Done()

	slog.Info("Shutting down consumers service...")

	if err := audit.Stop(); err != nil {
		slog.Error("Error stopping ledger audit", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	slog.Info("Consumers service stopped")
}
