package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
)

// Reader чтение данных. Отсутствующая запись — nil без ошибки.
type Reader interface {
	GetResource(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	ListResources(ctx context.Context, scope model.Scope, activeOnly bool) ([]*model.Resource, error)
	GetRule(ctx context.Context, id uuid.UUID) (model.ScheduleRule, error)
	ListRules(ctx context.Context, resourceID uuid.UUID) ([]model.ScheduleRule, error)
	GetSettings(ctx context.Context, scope model.Scope) (*model.BookingSettings, error)

	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	ListBookings(ctx context.Context, scope model.Scope, filter model.BookingFilter) ([]*model.Booking, error)
	// ActiveBookings бронирования ключа, которые занимают место (не cancelled/rejected)
	ActiveBookings(ctx context.Context, key model.LedgerKey) ([]*model.Booking, error)
	// ListElapsedConfirmed подтверждённые бронирования с датой раньше before
	ListElapsedConfirmed(ctx context.Context, before time.Time, limit int) ([]*model.Booking, error)

	ListAudit(ctx context.Context, bookingID int64) ([]*model.AuditLogEntry, error)
	ListNotifications(ctx context.Context, bookingID int64) ([]*model.NotificationRecord, error)
}

// Writer изменения; доступны только внутри транзакции
type Writer interface {
	InsertResource(ctx context.Context, resource *model.Resource) error
	UpdateResource(ctx context.Context, resource *model.Resource) error
	InsertRule(ctx context.Context, rule model.ScheduleRule) (model.ScheduleRule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteRulesByResource(ctx context.Context, resourceID uuid.UUID) (int64, error)

	InsertBooking(ctx context.Context, booking *model.Booking) error
	// UpdateBookingWindow и UpdateBookingStatus применяются, только если
	// строка всё ещё в статусе expected; false — конкурентное изменение
	UpdateBookingWindow(ctx context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error)
	UpdateBookingStatus(ctx context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error)

	AppendAudit(ctx context.Context, entry *model.AuditLogEntry) error
	// EnqueueNotification вставляет запись, если ключа (booking_id, type) ещё нет; false — запись уже была
	EnqueueNotification(ctx context.Context, record *model.NotificationRecord) (bool, error)
}

// Tx операции внутри одной атомарной единицы
type Tx interface {
	Reader
	Writer
}

// Store хранилище движка
type Store interface {
	Reader
	// WithinTx выполняет fn атомарно: всё или ничего. Непустой lockKey
	// сериализует fn со всеми транзакциями того же ключа. Ожидание ограничено,
	// по истечении возвращается model.ErrBusy.
	WithinTx(ctx context.Context, lockKey string, fn func(ctx context.Context, tx Tx) error) error
}
