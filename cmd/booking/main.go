package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/app"
	"github.com/Freeeeeet/booking_engine/internal/config"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel, "booking-engine")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := app.InitTracer(ctx, "booking-engine", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("Failed to init tracer", zap.Error(err))
	}

	engine, err := app.NewEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start engine", zap.Error(err))
	}

	logger.Info("Booking engine started",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.String("lock_mode", cfg.LockMode),
	)

	scheduler := app.NewScheduler(engine.Bookings, cfg.AutoCompleteInterval, cfg.AutoCompleteBatch, logger)
	scheduler.Start(ctx)

	<-ctx.Done()

	scheduler.Stop()
	if err := engine.Close(); err != nil {
		logger.Error("Failed to close engine", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		logger.Error("Failed to shutdown tracer", zap.Error(err))
	}

	logger.Info("Booking engine stopped")
}
