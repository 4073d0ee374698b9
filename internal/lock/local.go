package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Local блокировка по ключу внутри одного процесса
type Local struct {
	mu   sync.Mutex
	keys map[string]*localEntry
	wait time.Duration
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

// NewLocal создаёт локальный локер; wait <= 0 — ждать до отмены контекста
func NewLocal(wait time.Duration) *Local {
	return &Local{
		keys: make(map[string]*localEntry),
		wait: wait,
	}
}

func (l *Local) Acquire(ctx context.Context, key string) (Unlock, error) {
	entry := l.ref(key)

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func(context.Context) error {
			once.Do(func() {
				<-entry.sem
				l.unref(key)
			})
			return nil
		}, nil
	case <-waitCtx.Done():
		l.unref(key)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		return nil, fmt.Errorf("acquire %s: %w", key, ErrTimeout)
	}
}

func (l *Local) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.keys[key]
	if !ok {
		entry = &localEntry{sem: make(chan struct{}, 1)}
		l.keys[key] = entry
	}
	entry.refs++
	return entry
}

func (l *Local) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.keys[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.keys, key)
	}
}
