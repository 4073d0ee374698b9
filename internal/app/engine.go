package app

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/config"
	"github.com/Freeeeeet/booking_engine/internal/lock"
	"github.com/Freeeeeet/booking_engine/internal/repository"
	"github.com/Freeeeeet/booking_engine/internal/repository/memory"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Engine собранный движок бронирования
type Engine struct {
	Store         service.Store
	Slots         *service.SlotService
	Bookings      *service.BookingService
	Resources     *service.ResourceService
	Notifications *service.NotificationService

	closers []func() error
	logger  *zap.Logger
}

// NewEngine открывает хранилище по конфигурации, применяет миграции и
// собирает сервисы
func NewEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	e := &Engine{logger: logger}

	store, err := e.openStore(ctx, cfg)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.Store = store

	settings := service.NewStoreSettings(store, cfg.BookingDefaults())
	rules := service.NewRuleCache(cfg.RuleCacheSize, cfg.RuleCacheTTL)

	e.Slots = service.NewSlotService(store, settings, rules, logger.Named("slots"))
	e.Bookings = service.NewBookingService(store, settings, logger.Named("bookings"))
	e.Resources = service.NewResourceService(store, settings, rules, logger.Named("resources"))
	e.Notifications = service.NewNotificationService(store, logger.Named("notifications"))

	return e, nil
}

func (e *Engine) openStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	var locker lock.Locker
	switch cfg.LockMode {
	case config.LockModeRedis:
		redisLock, err := lock.NewRedisLock(cfg.RedisAddr, cfg.LockTTL, cfg.LockWait)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, redisLock.Close)
		locker = redisLock
	case config.LockModeLocal:
		locker = lock.NewLocal(cfg.LockWait)
	}

	if cfg.Storage == config.StorageMemory {
		e.logger.Info("Using in-memory storage", zap.String("lock_mode", cfg.LockMode))
		if locker == nil {
			locker = lock.NewLocal(cfg.LockWait)
		}
		return memory.NewStoreWithLocker(locker), nil
	}

	pool, err := OpenPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func() error {
		pool.Close()
		return nil
	})

	migrator, err := NewMigrator(pool, e.logger)
	if err != nil {
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return nil, err
	}

	mode := repository.LockModeAdvisory
	if locker != nil {
		mode = repository.LockModeExternal
	}
	e.logger.Info("Using postgres storage", zap.String("lock_mode", cfg.LockMode))
	return repository.NewStore(pool, mode, locker, cfg.LockWait, e.logger.Named("store"))
}

// OpenPool открывает пул соединений и проверяет подключение
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Close освобождает соединения в обратном порядке открытия
func (e *Engine) Close() error {
	var firstErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.closers = nil
	return firstErr
}
