// Package memory хранилище движка в памяти процесса. Используется для
// тестов и однопроцессного запуска (STORAGE=memory).
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/lock"
	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/google/uuid"
)

type Store struct {
	mu    sync.RWMutex
	locks lock.Locker
	data  *data
}

var _ service.Store = (*Store)(nil)

// NewStore хранилище с локальной блокировкой ключей
func NewStore(lockWait time.Duration) *Store {
	return NewStoreWithLocker(lock.NewLocal(lockWait))
}

// NewStoreWithLocker хранилище с заданным локером (например, Redis)
func NewStoreWithLocker(locker lock.Locker) *Store {
	return &Store{
		locks: locker,
		data:  newData(),
	}
}

// PutSettings задаёт настройки области (в реальной системе их владелец —
// внешний сервис конфигурации)
func (s *Store) PutSettings(scope model.Scope, settings model.BookingSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.settings[scope] = settings
}

// WithinTx выполняет fn под блокировкой ключа; при ошибке все изменения откатываются
func (s *Store) WithinTx(ctx context.Context, lockKey string, fn func(ctx context.Context, tx service.Tx) error) error {
	if lockKey != "" {
		unlock, err := s.locks.Acquire(ctx, lockKey)
		if err != nil {
			if errors.Is(err, lock.ErrTimeout) {
				return fmt.Errorf("%w: %v", model.ErrBusy, err)
			}
			return err
		}
		defer unlock(context.WithoutCancel(ctx))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, s.data); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) GetResource(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetResource(ctx, id)
}

func (s *Store) ListResources(ctx context.Context, scope model.Scope, activeOnly bool) ([]*model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListResources(ctx, scope, activeOnly)
}

func (s *Store) GetRule(ctx context.Context, id uuid.UUID) (model.ScheduleRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetRule(ctx, id)
}

func (s *Store) ListRules(ctx context.Context, resourceID uuid.UUID) ([]model.ScheduleRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListRules(ctx, resourceID)
}

func (s *Store) GetSettings(ctx context.Context, scope model.Scope) (*model.BookingSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetSettings(ctx, scope)
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetBooking(ctx, id)
}

func (s *Store) ListBookings(ctx context.Context, scope model.Scope, filter model.BookingFilter) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListBookings(ctx, scope, filter)
}

func (s *Store) ActiveBookings(ctx context.Context, key model.LedgerKey) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ActiveBookings(ctx, key)
}

func (s *Store) ListElapsedConfirmed(ctx context.Context, before time.Time, limit int) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListElapsedConfirmed(ctx, before, limit)
}

func (s *Store) ListAudit(ctx context.Context, bookingID int64) ([]*model.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListAudit(ctx, bookingID)
}

func (s *Store) ListNotifications(ctx context.Context, bookingID int64) ([]*model.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ListNotifications(ctx, bookingID)
}
