// Package lock реализует блокировки по ключу с ограниченным ожиданием.
// Ключ критической секции движка бронирования — ресурс + дата.
package lock

import (
	"context"
	"errors"
)

// ErrTimeout ключ не освободился за отведённое время ожидания
var ErrTimeout = errors.New("lock wait timeout")

// Unlock освобождает захваченный ключ
type Unlock func(ctx context.Context) error

// Locker захватывает эксклюзивную блокировку ключа. Ожидание ограничено:
// по его истечении возвращается ErrTimeout, а не бесконечная блокировка.
type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}
