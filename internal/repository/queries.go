package repository

import (
	"context"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/google/uuid"
)

// Queries набор репозиториев поверх одного соединения (пула или транзакции)
type Queries struct {
	Resources     *ResourceRepository
	Rules         *ScheduleRuleRepository
	Bookings      *BookingRepository
	Audit         *AuditLogRepository
	Notifications *NotificationRepository
	Settings      *SettingsRepository
}

var _ service.Tx = (*Queries)(nil)

func NewQueries(db base.DBTX) *Queries {
	return &Queries{
		Resources:     NewResourceRepository(db),
		Rules:         NewScheduleRuleRepository(db),
		Bookings:      NewBookingRepository(db),
		Audit:         NewAuditLogRepository(db),
		Notifications: NewNotificationRepository(db),
		Settings:      NewSettingsRepository(db),
	}
}

func (q *Queries) GetResource(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	return q.Resources.GetByID(ctx, id)
}

func (q *Queries) ListResources(ctx context.Context, scope model.Scope, activeOnly bool) ([]*model.Resource, error) {
	return q.Resources.ListByScope(ctx, scope, activeOnly)
}

func (q *Queries) InsertResource(ctx context.Context, resource *model.Resource) error {
	return q.Resources.Create(ctx, resource)
}

func (q *Queries) UpdateResource(ctx context.Context, resource *model.Resource) error {
	return q.Resources.Update(ctx, resource)
}

func (q *Queries) GetRule(ctx context.Context, id uuid.UUID) (model.ScheduleRule, error) {
	return q.Rules.GetByID(ctx, id)
}

func (q *Queries) ListRules(ctx context.Context, resourceID uuid.UUID) ([]model.ScheduleRule, error) {
	return q.Rules.ListByResource(ctx, resourceID)
}

func (q *Queries) InsertRule(ctx context.Context, rule model.ScheduleRule) (model.ScheduleRule, error) {
	return q.Rules.Create(ctx, rule)
}

func (q *Queries) DeleteRule(ctx context.Context, id uuid.UUID) (bool, error) {
	return q.Rules.Delete(ctx, id)
}

func (q *Queries) DeleteRulesByResource(ctx context.Context, resourceID uuid.UUID) (int64, error) {
	return q.Rules.DeleteByResource(ctx, resourceID)
}

func (q *Queries) GetSettings(ctx context.Context, scope model.Scope) (*model.BookingSettings, error) {
	return q.Settings.Get(ctx, scope)
}

func (q *Queries) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	return q.Bookings.GetByID(ctx, id)
}

func (q *Queries) ListBookings(ctx context.Context, scope model.Scope, filter model.BookingFilter) ([]*model.Booking, error) {
	return q.Bookings.ListByScope(ctx, scope, filter)
}

func (q *Queries) ActiveBookings(ctx context.Context, key model.LedgerKey) ([]*model.Booking, error) {
	return q.Bookings.ListActive(ctx, key)
}

func (q *Queries) ListElapsedConfirmed(ctx context.Context, before time.Time, limit int) ([]*model.Booking, error) {
	return q.Bookings.ListElapsedConfirmed(ctx, before, limit)
}

func (q *Queries) InsertBooking(ctx context.Context, booking *model.Booking) error {
	return q.Bookings.Create(ctx, booking)
}

func (q *Queries) UpdateBookingWindow(ctx context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error) {
	return q.Bookings.UpdateWindow(ctx, booking, expected)
}

func (q *Queries) UpdateBookingStatus(ctx context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error) {
	return q.Bookings.UpdateStatus(ctx, booking, expected)
}

func (q *Queries) AppendAudit(ctx context.Context, entry *model.AuditLogEntry) error {
	return q.Audit.Append(ctx, entry)
}

func (q *Queries) ListAudit(ctx context.Context, bookingID int64) ([]*model.AuditLogEntry, error) {
	return q.Audit.ListByBooking(ctx, bookingID)
}

func (q *Queries) EnqueueNotification(ctx context.Context, record *model.NotificationRecord) (bool, error) {
	return q.Notifications.Enqueue(ctx, record)
}

func (q *Queries) ListNotifications(ctx context.Context, bookingID int64) ([]*model.NotificationRecord, error) {
	return q.Notifications.ListByBooking(ctx, bookingID)
}
