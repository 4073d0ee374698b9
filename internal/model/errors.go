package model

import "errors"

// Таксономия ошибок движка бронирования. Ошибки оборачиваются через
// fmt.Errorf("...: %w", err), проверять их следует через errors.Is.
var (
	// ErrValidation некорректный запрос: окно, неизвестный/неактивный ресурс,
	// доступ вне своей области (org/bot). Повторять без изменений бессмысленно.
	ErrValidation = errors.New("validation error")

	// ErrNotFound неизвестный id бронирования или ресурса
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded окно уже занято до предела capacity_per_slot
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrStaleState переход недопустим из текущего статуса (обычно из-за
	// конкурентного изменения); нужно перечитать бронирование
	ErrStaleState = errors.New("stale state")

	// ErrBusy не удалось дождаться блокировки за отведённое время; операцию можно повторить
	ErrBusy = errors.New("resource busy, retry later")
)
