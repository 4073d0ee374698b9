package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SlotService строит свободные слоты на дату из правил расписания.
// Результат всегда считается заново и служит подсказкой: блокировок
// при чтении нет, вместимость перепроверяется в момент записи.
type SlotService struct {
	store    Reader
	settings SettingsProvider
	rules    *RuleCache
	logger   *zap.Logger
	now      func() time.Time
}

func NewSlotService(store Reader, settings SettingsProvider, rules *RuleCache, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:    store,
		settings: settings,
		rules:    rules,
		logger:   logger,
		now:      time.Now,
	}
}

// ListAvailableSlots возвращает упорядоченные слоты ресурса на дату, у которых
// остаток вместимости больше нуля. Неактивный ресурс слотов не имеет.
func (s *SlotService) ListAvailableSlots(ctx context.Context, scope model.Scope, resourceID uuid.UUID, date time.Time) (slots []model.Slot, err error) {
	ctx, span := startSpan(ctx, "SlotService.ListAvailableSlots",
		attribute.String("resource_id", resourceID.String()),
		attribute.String("date", model.FormatDate(date)),
	)
	defer func() { finishSpan(span, err) }()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", model.ErrValidation)
	}

	resource, err := loadResource(ctx, s.store, scope, resourceID)
	if err != nil {
		return nil, err
	}
	if !resource.IsActive {
		return []model.Slot{}, nil
	}

	settings, err := s.settings.Settings(ctx, scope)
	if err != nil {
		return nil, err
	}

	rules, err := s.resourceRules(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	key := model.LedgerKey{Scope: scope, ResourceID: &resourceID, Date: model.DateOf(date)}
	return s.build(ctx, key, rules, resource.CapacityPerSlot, settings)
}

// ListScopeSlots слоты для бронирований без ресурса: окна из настроек,
// вместимость по умолчанию. Доступно, только если у области нет активных ресурсов.
func (s *SlotService) ListScopeSlots(ctx context.Context, scope model.Scope, date time.Time) (slots []model.Slot, err error) {
	ctx, span := startSpan(ctx, "SlotService.ListScopeSlots",
		attribute.String("scope", scope.String()),
		attribute.String("date", model.FormatDate(date)),
	)
	defer func() { finishSpan(span, err) }()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", model.ErrValidation)
	}
	if err := requireNoActiveResources(ctx, s.store, scope); err != nil {
		return nil, err
	}

	settings, err := s.settings.Settings(ctx, scope)
	if err != nil {
		return nil, err
	}

	key := model.LedgerKey{Scope: scope, Date: model.DateOf(date)}
	return s.build(ctx, key, settings.WeeklyRules(), settings.Capacity, settings)
}

func (s *SlotService) resourceRules(ctx context.Context, resourceID uuid.UUID) ([]model.ScheduleRule, error) {
	if rules, ok := s.rules.Get(resourceID); ok {
		return rules, nil
	}
	rules, err := s.store.ListRules(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	s.rules.Add(resourceID, rules)
	return rules, nil
}

func (s *SlotService) build(ctx context.Context, key model.LedgerKey, rules []model.ScheduleRule, capacity int, settings model.BookingSettings) ([]model.Slot, error) {
	applicable := model.ApplicableRules(rules, key.Date)
	if overlaps := model.OverlappingWeekly(applicable); len(overlaps) > 0 {
		s.logger.Warn("Overlapping weekly rules expanded independently",
			zap.String("ledger_key", key.LockKey()),
			zap.Int("pairs", len(overlaps)),
		)
	}
	if len(applicable) == 0 {
		return []model.Slot{}, nil
	}

	bookings, err := s.store.ActiveBookings(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("active bookings: %w", err)
	}

	loc := settings.Location()
	now := s.now().In(loc)
	earliest := now.Add(time.Duration(settings.MinNoticeMinutes) * time.Minute)
	var latest time.Time
	if settings.MaxFutureDays > 0 {
		latest = now.AddDate(0, 0, settings.MaxFutureDays)
	}

	slots := make([]model.Slot, 0)
	for _, rule := range applicable {
		for _, w := range model.ExpandRule(rule) {
			startsAt := w.Start.On(key.Date, loc)
			if startsAt.Before(earliest) {
				continue
			}
			if !latest.IsZero() && startsAt.After(latest) {
				continue
			}

			available := capacity - countOverlapping(bookings, w, 0)
			if available <= 0 {
				continue
			}
			slots = append(slots, model.Slot{Start: w.Start, End: w.End, AvailableCapacity: available})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})
	return slots, nil
}

// WithClock подменяет источник текущего времени
func (s *SlotService) WithClock(now func() time.Time) *SlotService {
	s.now = now
	return s
}
