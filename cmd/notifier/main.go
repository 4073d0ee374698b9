package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/booking_engine/internal/app"
	"github.com/Freeeeeet/booking_engine/internal/config"
	"github.com/Freeeeeet/booking_engine/internal/notify"
	"github.com/Freeeeeet/booking_engine/internal/repository"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage != config.StoragePostgres {
		log.Fatalf("Notifier requires postgres storage, got %q", cfg.Storage)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel, "booking-notifier")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := app.OpenPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer pool.Close()

	publisher, err := notify.NewAMQPPublisher(cfg.Notify.RabbitURL, cfg.Notify.Exchange)
	if err != nil {
		logger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
	}
	defer publisher.Close()

	dispatcher := notify.NewDispatcher(
		repository.NewNotificationRepository(pool),
		publisher,
		notify.Options{
			BatchSize:   cfg.Notify.BatchSize,
			Lease:       cfg.Notify.Lease,
			MaxAttempts: cfg.Notify.MaxAttempts,
		},
		logger,
	)

	if err := dispatcher.Run(ctx, cfg.Notify.PollInterval); err != nil {
		logger.Error("Dispatcher stopped with error", zap.Error(err))
	}
}
