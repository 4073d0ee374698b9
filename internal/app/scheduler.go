package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ElapsedCompleter завершает подтверждённые бронирования, окно которых прошло
type ElapsedCompleter interface {
	CompleteElapsed(ctx context.Context, limit int) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	completer ElapsedCompleter
	interval  time.Duration
	batch     int
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewScheduler создаёт новый планировщик; interval <= 0 отключает автозавершение
func NewScheduler(completer ElapsedCompleter, interval time.Duration, batch int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		completer: completer,
		interval:  interval,
		batch:     batch,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Auto-complete task disabled")
		return
	}

	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.runAutoCompleteTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runAutoCompleteTask периодически завершает прошедшие бронирования
func (s *Scheduler) runAutoCompleteTask(ctx context.Context) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.completeElapsed(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.completeElapsed(ctx)
		case <-s.stopChan:
			s.logger.Info("Auto-complete task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Auto-complete task cancelled")
			return
		}
	}
}

func (s *Scheduler) completeElapsed(ctx context.Context) {
	completed, err := s.completer.CompleteElapsed(ctx, s.batch)
	if err != nil {
		s.logger.Error("Failed to complete elapsed bookings", zap.Error(err))
		return
	}

	s.logger.Debug("Auto-complete pass finished", zap.Int("completed", completed))
}
