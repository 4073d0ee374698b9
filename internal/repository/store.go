package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/lock"
	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LockMode способ сериализации транзакций одного ключа
type LockMode string

const (
	// LockModeAdvisory pg_advisory_xact_lock внутри транзакции
	LockModeAdvisory LockMode = "advisory"
	// LockModeExternal внешний Locker (Redis или локальный) вокруг транзакции
	LockModeExternal LockMode = "external"
)

// Store хранилище PostgreSQL. Чтения вне транзакции идут напрямую через пул.
type Store struct {
	*Queries
	pool     *pgxpool.Pool
	mode     LockMode
	locker   lock.Locker
	lockWait time.Duration
	logger   *zap.Logger
}

var _ service.Store = (*Store)(nil)

// NewStore создаёт хранилище. locker нужен только для LockModeExternal.
func NewStore(pool *pgxpool.Pool, mode LockMode, locker lock.Locker, lockWait time.Duration, logger *zap.Logger) (*Store, error) {
	if mode == LockModeExternal && locker == nil {
		return nil, fmt.Errorf("lock mode %s requires a locker", mode)
	}
	return &Store{
		Queries:  NewQueries(pool),
		pool:     pool,
		mode:     mode,
		locker:   locker,
		lockWait: lockWait,
		logger:   logger,
	}, nil
}

// WithinTx выполняет fn в транзакции READ COMMITTED. Непустой lockKey
// сериализует транзакции ключа; ожидание блокировки ограничено lockWait,
// по его истечении возвращается model.ErrBusy.
func (s *Store) WithinTx(ctx context.Context, lockKey string, fn func(ctx context.Context, tx service.Tx) error) error {
	if lockKey != "" && s.mode == LockModeExternal {
		unlock, err := s.locker.Acquire(ctx, lockKey)
		if err != nil {
			if errors.Is(err, lock.ErrTimeout) {
				return fmt.Errorf("%w: %v", model.ErrBusy, err)
			}
			return fmt.Errorf("acquire lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release lock", zap.String("key", lockKey), zap.Error(err))
			}
		}()
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	// Начинаем транзакцию
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if lockKey != "" && s.mode == LockModeAdvisory {
		if err := s.advisoryLock(ctx, tx, lockKey); err != nil {
			return err
		}
	}

	if err := fn(ctx, NewQueries(tx)); err != nil {
		return err
	}

	// Коммитим транзакцию
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// acquire берёт соединение из пула, ожидая не дольше lockWait
func (s *Store) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if s.lockWait <= 0 {
		conn, err := s.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire connection: %w", err)
		}
		return conn, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	conn, err := s.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no free connection within %s", model.ErrBusy, s.lockWait)
		}
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// advisoryLock берёт транзакционную advisory-блокировку по хешу ключа.
// lock_timeout действует только до конца транзакции.
func (s *Store) advisoryLock(ctx context.Context, tx pgx.Tx, key string) error {
	if s.lockWait > 0 {
		timeout := fmt.Sprintf("%dms", s.lockWait.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		if base.IsLockTimeout(err) {
			return fmt.Errorf("%w: advisory lock %s: %v", model.ErrBusy, key, err)
		}
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}

	return nil
}

// Pool пул соединений (для мигратора и воркера уведомлений)
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
