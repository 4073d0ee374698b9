package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BookingService жизненный цикл бронирования. Каждое изменение вместе с
// записью журнала и уведомлением фиксируется одной транзакцией.
type BookingService struct {
	store    Store
	settings SettingsProvider
	logger   *zap.Logger
	now      func() time.Time
}

func NewBookingService(store Store, settings SettingsProvider, logger *zap.Logger) *BookingService {
	return &BookingService{
		store:    store,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking создаёт бронирование. Занятость окна пересчитывается под
// блокировкой ключа (ресурс, дата); при нехватке мест — ErrCapacityExceeded.
func (s *BookingService) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (booking *model.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.CreateBooking",
		attribute.String("scope", req.Scope.String()),
		attribute.String("date", model.FormatDate(req.Date)),
		attribute.String("window", req.Window.String()),
	)
	defer func() { finishSpan(span, err) }()

	if err := validateCreate(req); err != nil {
		return nil, err
	}

	settings, err := s.settings.Settings(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	key := model.LedgerKey{Scope: req.Scope, ResourceID: req.ResourceID, Date: model.DateOf(req.Date)}
	now := s.now()

	booking = &model.Booking{
		OrgID:      req.Scope.OrgID,
		BotID:      req.Scope.BotID,
		ResourceID: req.ResourceID,
		Date:       key.Date,
		Start:      req.Window.Start,
		End:        req.Window.End,
		Status:     model.BookingStatusPending,
		Customer:   req.Customer,
		FormData:   req.FormData,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// Автоподтверждение задаётся настройками области
	if settings.AutoConfirm {
		booking.Status = model.BookingStatusConfirmed
		booking.ConfirmedAt = &now
	}

	err = s.store.WithinTx(ctx, key.LockKey(), func(ctx context.Context, tx Tx) error {
		capacity, err := capacityFor(ctx, tx, key, settings)
		if err != nil {
			return err
		}

		active, err := tx.ActiveBookings(ctx, key)
		if err != nil {
			return fmt.Errorf("active bookings: %w", err)
		}
		if dup := findDuplicate(active, booking); dup != nil {
			return fmt.Errorf("%w: customer %s already has confirmed booking %d at %s",
				model.ErrValidation, booking.Customer.Email, dup.ID, dup.Start)
		}
		if err := ensureCapacity(active, key, req.Window, capacity, 0); err != nil {
			return err
		}

		if err := tx.InsertBooking(ctx, booking); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		details := struct {
			windowDetails
			Status     model.BookingStatus `json:"status"`
			ResourceID *string             `json:"resource_id,omitempty"`
		}{windowDetails: windowOf(booking), Status: booking.Status}
		if booking.ResourceID != nil {
			id := booking.ResourceID.String()
			details.ResourceID = &id
		}
		if err := appendAudit(ctx, tx, booking, model.AuditActionCreate, details, now); err != nil {
			return err
		}

		_, err = enqueueForBooking(ctx, tx, booking, model.NotificationTypeConfirmation, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("ledger_key", key.LockKey()),
		zap.String("window", booking.Window().String()),
		zap.String("status", string(booking.Status)),
	)

	return booking, nil
}

func validateCreate(req model.CreateBookingRequest) error {
	if err := req.Scope.Validate(); err != nil {
		return err
	}
	if req.Date.IsZero() {
		return fmt.Errorf("%w: booking date is required", model.ErrValidation)
	}
	if err := req.Window.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		return fmt.Errorf("%w: customer name is required", model.ErrValidation)
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return fmt.Errorf("%w: customer email is required", model.ErrValidation)
	}
	return nil
}

// findDuplicate подтверждённое бронирование того же клиента на то же время
func findDuplicate(active []*model.Booking, b *model.Booking) *model.Booking {
	for _, other := range active {
		if other.Status != model.BookingStatusConfirmed {
			continue
		}
		if other.Start == b.Start && strings.EqualFold(other.Customer.Email, b.Customer.Email) {
			return other
		}
	}
	return nil
}

// ConfirmBooking pending → confirmed
func (s *BookingService) ConfirmBooking(ctx context.Context, scope model.Scope, id int64) (*model.Booking, error) {
	return s.transition(ctx, scope, id, model.BookingStatusConfirmed, model.AuditActionConfirm, nil)
}

// CancelBooking отменяет бронирование и ставит уведомление об отмене.
// Повторная отмена даёт ErrStaleState и побочных эффектов не имеет.
func (s *BookingService) CancelBooking(ctx context.Context, scope model.Scope, id int64, reason string) (*model.Booking, error) {
	return s.transition(ctx, scope, id, model.BookingStatusCancelled, model.AuditActionCancel, &reason)
}

// CompleteBooking confirmed → completed
func (s *BookingService) CompleteBooking(ctx context.Context, scope model.Scope, id int64) (*model.Booking, error) {
	return s.transition(ctx, scope, id, model.BookingStatusCompleted, model.AuditActionComplete, nil)
}

// MarkNoShow confirmed → no_show
func (s *BookingService) MarkNoShow(ctx context.Context, scope model.Scope, id int64) (*model.Booking, error) {
	return s.transition(ctx, scope, id, model.BookingStatusNoShow, model.AuditActionNoShow, nil)
}

type transitionDetails struct {
	From   model.BookingStatus `json:"from"`
	To     model.BookingStatus `json:"to"`
	Reason *string             `json:"reason,omitempty"`
}

// transition смена статуса с оптимистичной проверкой: строка обновляется,
// только если её статус не изменился с момента чтения
func (s *BookingService) transition(
	ctx context.Context,
	scope model.Scope,
	id int64,
	to model.BookingStatus,
	action model.AuditAction,
	reason *string,
) (booking *model.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService."+string(action),
		attribute.Int64("booking_id", id),
		attribute.String("to", string(to)),
	)
	defer func() { finishSpan(span, err) }()

	// Отменить можно только бронирование, которое ещё не началось
	var loc *time.Location
	if to == model.BookingStatusCancelled {
		settings, err := s.settings.Settings(ctx, scope)
		if err != nil {
			return nil, err
		}
		loc = settings.Location()
	}

	var from model.BookingStatus
	err = s.store.WithinTx(ctx, "", func(ctx context.Context, tx Tx) error {
		booking, err = loadBooking(ctx, tx, scope, id)
		if err != nil {
			return err
		}

		from = booking.Status
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: booking %d is %s, cannot become %s", model.ErrStaleState, id, from, to)
		}

		now := s.now()
		if loc != nil && !booking.Start.On(booking.Date, loc).After(now) {
			return fmt.Errorf("%w: booking %d has already started at %s on %s",
				model.ErrValidation, id, booking.Start, model.FormatDate(booking.Date))
		}

		booking.Status = to
		booking.UpdatedAt = now
		switch to {
		case model.BookingStatusConfirmed:
			booking.ConfirmedAt = &now
		case model.BookingStatusCancelled:
			booking.CancelledAt = &now
		}

		updated, err := tx.UpdateBookingStatus(ctx, booking, from)
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if !updated {
			return fmt.Errorf("%w: booking %d was changed concurrently", model.ErrStaleState, id)
		}

		if err := appendAudit(ctx, tx, booking, action, transitionDetails{From: from, To: to, Reason: reason}, now); err != nil {
			return err
		}

		if to == model.BookingStatusCancelled {
			if _, err := enqueueForBooking(ctx, tx, booking, model.NotificationTypeCancellation, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrStaleState) {
			s.logger.Warn("Stale booking transition",
				zap.Int64("booking_id", id),
				zap.String("to", string(to)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("Booking status changed",
		zap.Int64("booking_id", id),
		zap.String("from", string(from)),
		zap.String("status", string(to)),
	)

	return booking, nil
}

type rescheduleDetails struct {
	Old windowDetails `json:"old"`
	New windowDetails `json:"new"`
}

// RescheduleBooking переносит бронирование на новое окно (и, возможно, дату).
// Вместимость нового окна проверяется без учёта самого бронирования; при
// нехватке мест бронирование не меняется.
func (s *BookingService) RescheduleBooking(ctx context.Context, scope model.Scope, id int64, req model.RescheduleRequest) (booking *model.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.RescheduleBooking",
		attribute.Int64("booking_id", id),
		attribute.String("window", req.Window.String()),
	)
	defer func() { finishSpan(span, err) }()

	if err := req.Window.Validate(); err != nil {
		return nil, err
	}

	// Ключ блокировки зависит от ресурса и новой даты, поэтому читаем бронирование заранее
	current, err := loadBooking(ctx, s.store, scope, id)
	if err != nil {
		return nil, err
	}

	date := current.Date
	if req.Date != nil {
		date = *req.Date
	}
	key := model.LedgerKey{Scope: current.Scope(), ResourceID: current.ResourceID, Date: model.DateOf(date)}

	settings, err := s.settings.Settings(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !req.Window.End.On(key.Date, settings.Location()).After(s.now()) {
		return nil, fmt.Errorf("%w: new window %s on %s is in the past",
			model.ErrValidation, req.Window, model.FormatDate(key.Date))
	}

	var old windowDetails
	err = s.store.WithinTx(ctx, key.LockKey(), func(ctx context.Context, tx Tx) error {
		booking, err = loadBooking(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if booking.Status.Terminal() {
			return fmt.Errorf("%w: booking %d is %s and cannot be rescheduled", model.ErrStaleState, id, booking.Status)
		}

		capacity, err := rescheduleCapacity(ctx, tx, key, settings)
		if err != nil {
			return err
		}
		if err := reserve(ctx, tx, key, req.Window, capacity, booking.ID); err != nil {
			return err
		}

		now := s.now()
		old = windowOf(booking)
		booking.Date = key.Date
		booking.Start = req.Window.Start
		booking.End = req.Window.End
		booking.UpdatedAt = now
		if req.FormData != nil {
			booking.FormData = req.FormData
		}

		updated, err := tx.UpdateBookingWindow(ctx, booking, booking.Status)
		if err != nil {
			return fmt.Errorf("update booking window: %w", err)
		}
		if !updated {
			return fmt.Errorf("%w: booking %d was changed concurrently", model.ErrStaleState, id)
		}

		return appendAudit(ctx, tx, booking, model.AuditActionReschedule,
			rescheduleDetails{Old: old, New: windowOf(booking)}, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking rescheduled",
		zap.Int64("booking_id", id),
		zap.String("old_date", old.Date),
		zap.String("old_window", model.Window{Start: old.Start, End: old.End}.String()),
		zap.String("new_date", model.FormatDate(booking.Date)),
		zap.String("new_window", booking.Window().String()),
	)

	return booking, nil
}

// GetBooking бронирование области
func (s *BookingService) GetBooking(ctx context.Context, scope model.Scope, id int64) (*model.Booking, error) {
	return loadBooking(ctx, s.store, scope, id)
}

// ListBookings бронирования области по фильтру
func (s *BookingService) ListBookings(ctx context.Context, scope model.Scope, filter model.BookingFilter) ([]*model.Booking, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	bookings, err := s.store.ListBookings(ctx, scope, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// AuditTrail журнал бронирования в порядке записи
func (s *BookingService) AuditTrail(ctx context.Context, scope model.Scope, id int64) ([]*model.AuditLogEntry, error) {
	if _, err := loadBooking(ctx, s.store, scope, id); err != nil {
		return nil, err
	}
	entries, err := s.store.ListAudit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return entries, nil
}

// CompleteElapsed завершает подтверждённые бронирования, окно которых уже
// закончилось в часовом поясе области. Возвращает число завершённых.
func (s *BookingService) CompleteElapsed(ctx context.Context, limit int) (int, error) {
	now := s.now()
	// С запасом в сутки на часовые пояса; точная проверка ниже
	candidates, err := s.store.ListElapsedConfirmed(ctx, model.DateOf(now).AddDate(0, 0, 2), limit)
	if err != nil {
		return 0, fmt.Errorf("list elapsed bookings: %w", err)
	}

	locations := make(map[model.Scope]*time.Location)
	completed := 0
	for _, b := range candidates {
		scope := b.Scope()
		loc, ok := locations[scope]
		if !ok {
			settings, err := s.settings.Settings(ctx, scope)
			switch {
			case errors.Is(err, model.ErrValidation):
				s.logger.Warn("Skipping scope with invalid settings",
					zap.String("scope", scope.String()),
					zap.Error(err),
				)
			case err != nil:
				return completed, err
			default:
				loc = settings.Location()
			}
			locations[scope] = loc
		}
		if loc == nil {
			continue
		}

		if b.End.On(b.Date, loc).After(now) {
			continue
		}

		if _, err := s.CompleteBooking(ctx, scope, b.ID); err != nil {
			if errors.Is(err, model.ErrStaleState) {
				continue
			}
			return completed, err
		}
		completed++
	}

	if completed > 0 {
		s.logger.Info("Elapsed bookings completed", zap.Int("count", completed))
	}
	return completed, nil
}

// WithClock подменяет источник текущего времени
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}
