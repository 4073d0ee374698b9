package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Queue очередь уведомлений на стороне хранилища
type Queue interface {
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.NotificationRecord, error)
	MarkSent(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, lastError string, nextAttemptAt time.Time) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
}

// Publisher транспорт доставки
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Message сообщение, которое уходит в брокер
type Message struct {
	NotificationID int64                  `json:"notification_id"`
	BookingID      int64                  `json:"booking_id"`
	OrgID          string                 `json:"org_id"`
	BotID          string                 `json:"bot_id"`
	Type           model.NotificationType `json:"type"`
	Recipient      string                 `json:"recipient"`
	Payload        json.RawMessage        `json:"payload"`
}

// RoutingKey ключ маршрутизации для типа уведомления
func RoutingKey(typ model.NotificationType) string {
	return "notification." + string(typ)
}

type Options struct {
	BatchSize   int
	Lease       time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Dispatcher забирает записи queued и публикует их. Доставка как минимум
// один раз: запись, опубликованная перед падением воркера, будет отправлена снова
// после истечения аренды.
type Dispatcher struct {
	queue     Queue
	publisher Publisher
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatcher(queue Queue, publisher Publisher, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Lease <= 0 {
		opts.Lease = time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 10 * time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = time.Hour
	}
	return &Dispatcher{
		queue:     queue,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// DispatchOnce обрабатывает одну порцию очереди и возвращает число отправленных
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	records, err := d.queue.Claim(ctx, d.opts.BatchSize, d.opts.Lease)
	if err != nil {
		return 0, fmt.Errorf("claim notifications: %w", err)
	}

	sent := 0
	for _, rec := range records {
		msg := Message{
			NotificationID: rec.ID,
			BookingID:      rec.BookingID,
			OrgID:          rec.OrgID,
			BotID:          rec.BotID,
			Type:           rec.Type,
			Recipient:      rec.Recipient,
			Payload:        rec.Payload,
		}

		if err := d.publisher.PublishJSON(ctx, RoutingKey(rec.Type), msg); err != nil {
			if markErr := d.handleFailure(ctx, rec, err); markErr != nil {
				return sent, markErr
			}
			continue
		}

		if err := d.queue.MarkSent(ctx, rec.ID); err != nil {
			return sent, fmt.Errorf("mark sent: %w", err)
		}
		sent++

		d.logger.Info("Notification sent",
			zap.Int64("notification_id", rec.ID),
			zap.Int64("booking_id", rec.BookingID),
			zap.String("type", string(rec.Type)),
		)
	}

	return sent, nil
}

func (d *Dispatcher) handleFailure(ctx context.Context, rec *model.NotificationRecord, cause error) error {
	attempts := rec.Attempts + 1
	if attempts >= d.opts.MaxAttempts {
		d.logger.Error("Notification delivery failed permanently",
			zap.Int64("notification_id", rec.ID),
			zap.Int("attempts", attempts),
			zap.Error(cause),
		)
		if err := d.queue.MarkFailed(ctx, rec.ID, cause.Error()); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return nil
	}

	next := d.now().Add(d.backoff(attempts))
	d.logger.Warn("Notification delivery failed, will retry",
		zap.Int64("notification_id", rec.ID),
		zap.Int("attempts", attempts),
		zap.Time("next_attempt_at", next),
		zap.Error(cause),
	)
	if err := d.queue.MarkRetry(ctx, rec.ID, cause.Error(), next); err != nil {
		return fmt.Errorf("mark retry: %w", err)
	}
	return nil
}

// backoff задержка перед попыткой с номером attempts+1
func (d *Dispatcher) backoff(attempts int) time.Duration {
	b := retry.WithCappedDuration(d.opts.MaxDelay, retry.NewExponential(d.opts.BaseDelay))
	var delay time.Duration
	for i := 0; i < attempts; i++ {
		delay, _ = b.Next()
	}
	return delay
}

// Run обрабатывает очередь каждые interval до отмены ctx
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	d.logger.Info("Notification dispatcher started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for {
			sent, err := d.DispatchOnce(ctx)
			if err != nil {
				d.logger.Error("Dispatch pass failed", zap.Error(err))
				break
			}
			// Полная порция — возможно, в очереди есть ещё
			if sent < d.opts.BatchSize {
				break
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher stopped")
			return nil
		}
	}
}
