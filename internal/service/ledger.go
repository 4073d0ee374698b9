package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/model"
)

// OccupiedCount число бронирований ключа, занимающих место в окне w.
// Бронирование excludeID не учитывается (перенос самого себя).
// Занятость всегда вычисляется из строк бронирований, отдельного счётчика нет.
func OccupiedCount(ctx context.Context, r Reader, key model.LedgerKey, w model.Window, excludeID int64) (int, error) {
	bookings, err := r.ActiveBookings(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("active bookings: %w", err)
	}
	return countOverlapping(bookings, w, excludeID), nil
}

func countOverlapping(bookings []*model.Booking, w model.Window, excludeID int64) int {
	occupied := 0
	for _, b := range bookings {
		if b.ID == excludeID || !b.Status.Occupies() {
			continue
		}
		if b.Window().Overlaps(w) {
			occupied++
		}
	}
	return occupied
}

// reserve проверяет вместимость внутри критической секции ключа
func reserve(ctx context.Context, tx Tx, key model.LedgerKey, w model.Window, capacity int, excludeID int64) error {
	bookings, err := tx.ActiveBookings(ctx, key)
	if err != nil {
		return fmt.Errorf("active bookings: %w", err)
	}
	return ensureCapacity(bookings, key, w, capacity, excludeID)
}

func ensureCapacity(bookings []*model.Booking, key model.LedgerKey, w model.Window, capacity int, excludeID int64) error {
	occupied := countOverlapping(bookings, w, excludeID)
	if occupied >= capacity {
		return fmt.Errorf("%w: %d of %d places taken for %s on %s",
			model.ErrCapacityExceeded, occupied, capacity, w, model.FormatDate(key.Date))
	}
	return nil
}
