package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// NotificationService точка постановки уведомлений в очередь. Доставка и
// смена статуса (sent/failed) — забота внешнего воркера.
type NotificationService struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewNotificationService(store Store, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue ставит уведомление в очередь, если записи с ключом (booking_id, type)
// ещё нет. Повторный вызов ничего не меняет и возвращает false.
func (s *NotificationService) Enqueue(
	ctx context.Context,
	scope model.Scope,
	bookingID int64,
	typ model.NotificationType,
	recipient string,
	payload json.RawMessage,
) (created bool, err error) {
	ctx, span := startSpan(ctx, "NotificationService.Enqueue",
		attribute.Int64("booking_id", bookingID),
		attribute.String("type", string(typ)),
	)
	defer func() { finishSpan(span, err) }()

	if typ == "" {
		return false, fmt.Errorf("%w: notification type is required", model.ErrValidation)
	}
	if recipient == "" {
		return false, fmt.Errorf("%w: recipient is required", model.ErrValidation)
	}
	// payload в хранилище обязателен
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	err = s.store.WithinTx(ctx, "", func(ctx context.Context, tx Tx) error {
		booking, err := loadBooking(ctx, tx, scope, bookingID)
		if err != nil {
			return err
		}

		created, err = tx.EnqueueNotification(ctx, &model.NotificationRecord{
			OrgID:     booking.OrgID,
			BotID:     booking.BotID,
			BookingID: booking.ID,
			Type:      typ,
			Recipient: recipient,
			Payload:   payload,
			Status:    model.NotificationStatusQueued,
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		})
		if err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		s.logger.Info("Notification queued",
			zap.Int64("booking_id", bookingID),
			zap.String("type", string(typ)),
		)
	} else {
		s.logger.Debug("Notification already queued",
			zap.Int64("booking_id", bookingID),
			zap.String("type", string(typ)),
		)
	}
	return created, nil
}

// ListForBooking уведомления бронирования
func (s *NotificationService) ListForBooking(ctx context.Context, scope model.Scope, bookingID int64) ([]*model.NotificationRecord, error) {
	if _, err := loadBooking(ctx, s.store, scope, bookingID); err != nil {
		return nil, err
	}
	records, err := s.store.ListNotifications(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return records, nil
}

// notificationPayload содержимое сообщения для воркера доставки
type notificationPayload struct {
	BookingID    int64               `json:"booking_id"`
	ResourceID   *string             `json:"resource_id,omitempty"`
	Date         string              `json:"booking_date"`
	Start        model.Clock         `json:"start_time"`
	End          model.Clock         `json:"end_time"`
	Status       model.BookingStatus `json:"status"`
	CustomerName string              `json:"customer_name"`
}

// enqueueForBooking ставит уведомление о бронировании внутри уже открытой транзакции
func enqueueForBooking(ctx context.Context, tx Tx, booking *model.Booking, typ model.NotificationType, now time.Time) (bool, error) {
	payload := notificationPayload{
		BookingID:    booking.ID,
		Date:         model.FormatDate(booking.Date),
		Start:        booking.Start,
		End:          booking.End,
		Status:       booking.Status,
		CustomerName: booking.Customer.Name,
	}
	if booking.ResourceID != nil {
		id := booking.ResourceID.String()
		payload.ResourceID = &id
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal notification payload: %w", err)
	}

	created, err := tx.EnqueueNotification(ctx, &model.NotificationRecord{
		OrgID:     booking.OrgID,
		BotID:     booking.BotID,
		BookingID: booking.ID,
		Type:      typ,
		Recipient: booking.Customer.Email,
		Payload:   raw,
		Status:    model.NotificationStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return false, fmt.Errorf("enqueue %s notification: %w", typ, err)
	}
	return created, nil
}

// WithClock подменяет источник текущего времени
func (s *NotificationService) WithClock(now func() time.Time) *NotificationService {
	s.now = now
	return s
}
