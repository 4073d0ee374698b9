package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
)

// loadResource ищет ресурс и проверяет, что он принадлежит области
func loadResource(ctx context.Context, r Reader, scope model.Scope, id uuid.UUID) (*model.Resource, error) {
	resource, err := r.GetResource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get resource: %w", err)
	}
	if resource == nil {
		return nil, fmt.Errorf("resource %s: %w", id, model.ErrNotFound)
	}
	if !scope.Owns(resource.OrgID, resource.BotID) {
		return nil, fmt.Errorf("%w: resource %s is outside of scope %s", model.ErrValidation, id, scope)
	}
	return resource, nil
}

// loadActiveResource как loadResource, но неактивный ресурс — ошибка валидации
func loadActiveResource(ctx context.Context, r Reader, scope model.Scope, id uuid.UUID) (*model.Resource, error) {
	resource, err := loadResource(ctx, r, scope, id)
	if err != nil {
		return nil, err
	}
	if !resource.IsActive {
		return nil, fmt.Errorf("%w: resource %s is not active", model.ErrValidation, id)
	}
	return resource, nil
}

// loadBooking ищет бронирование и проверяет область
func loadBooking(ctx context.Context, r Reader, scope model.Scope, id int64) (*model.Booking, error) {
	booking, err := r.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", id, model.ErrNotFound)
	}
	if !scope.Owns(booking.OrgID, booking.BotID) {
		return nil, fmt.Errorf("%w: booking %d is outside of scope %s", model.ErrValidation, id, scope)
	}
	return booking, nil
}

// capacityFor вместимость ключа: у ресурса своя, без ресурса — из настроек,
// причём без ресурса можно бронировать, только если активных ресурсов нет
func capacityFor(ctx context.Context, r Reader, key model.LedgerKey, settings model.BookingSettings) (int, error) {
	if key.ResourceID != nil {
		resource, err := loadActiveResource(ctx, r, key.Scope, *key.ResourceID)
		if err != nil {
			return 0, err
		}
		return resource.CapacityPerSlot, nil
	}

	if err := requireNoActiveResources(ctx, r, key.Scope); err != nil {
		return 0, err
	}
	return settings.Capacity, nil
}

// rescheduleCapacity вместимость ключа для переноса. Уже существующее
// бронирование без ресурса переносится в пределах вместимости из настроек,
// даже если в области с тех пор появились активные ресурсы.
func rescheduleCapacity(ctx context.Context, r Reader, key model.LedgerKey, settings model.BookingSettings) (int, error) {
	if key.ResourceID == nil {
		return settings.Capacity, nil
	}
	return capacityFor(ctx, r, key, settings)
}

func requireNoActiveResources(ctx context.Context, r Reader, scope model.Scope) error {
	resources, err := r.ListResources(ctx, scope, true)
	if err != nil {
		return fmt.Errorf("list resources: %w", err)
	}
	if len(resources) > 0 {
		return fmt.Errorf("%w: scope %s has active resources, a resource must be selected", model.ErrValidation, scope)
	}
	return nil
}
