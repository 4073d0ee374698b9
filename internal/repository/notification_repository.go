package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// NotificationRepository очередь уведомлений. Движок только вставляет
// записи; Claim/Mark* использует воркер доставки.
type NotificationRepository struct {
	base.Repository
}

func NewNotificationRepository(db base.DBTX) *NotificationRepository {
	return &NotificationRepository{Repository: base.NewRepository(db)}
}

const notificationColumns = `id, org_id, bot_id, booking_id, notification_type, recipient, payload, status,
		attempts, last_error, next_attempt_at, sent_at, created_at, updated_at`

func scanNotification(row pgx.Row) (*model.NotificationRecord, error) {
	var n model.NotificationRecord
	err := row.Scan(
		&n.ID,
		&n.OrgID,
		&n.BotID,
		&n.BookingID,
		&n.Type,
		&n.Recipient,
		&n.Payload,
		&n.Status,
		&n.Attempts,
		&n.LastError,
		&n.NextAttemptAt,
		&n.SentAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]*model.NotificationRecord, error) {
	defer rows.Close()

	var records []*model.NotificationRecord
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		records = append(records, n)
	}
	return records, rows.Err()
}

// Enqueue вставляет запись, если ключа (booking_id, notification_type) ещё нет.
// false — запись уже существовала.
func (r *NotificationRepository) Enqueue(ctx context.Context, record *model.NotificationRecord) (bool, error) {
	query := `
		INSERT INTO booking_notifications (org_id, bot_id, booking_id, notification_type, recipient, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (booking_id, notification_type) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.DB().QueryRow(
		ctx, query,
		record.OrgID,
		record.BotID,
		record.BookingID,
		record.Type,
		record.Recipient,
		record.Payload,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("enqueue notification: %w", err)
	}

	return true, nil
}

// ListByBooking уведомления бронирования
func (r *NotificationRepository) ListByBooking(ctx context.Context, bookingID int64) ([]*model.NotificationRecord, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM booking_notifications
		WHERE booking_id = $1
		ORDER BY id
	`

	rows, err := r.DB().Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return collectNotifications(rows)
}

// Claim забирает до limit записей в статусе queued, у которых подошло время
// попытки, и арендует их на lease. Конкурентные воркеры получают разные записи.
func (r *NotificationRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.NotificationRecord, error) {
	query := `
		UPDATE booking_notifications
		SET locked_until = NOW() + $2 * INTERVAL '1 millisecond',
		    updated_at = NOW()
		WHERE id IN (
			SELECT id
			FROM booking_notifications
			WHERE status = 'queued'
			  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
			  AND (locked_until IS NULL OR locked_until <= NOW())
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns

	rows, err := r.DB().Query(ctx, query, limit, lease.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}

	return collectNotifications(rows)
}

// MarkSent отмечает успешную доставку
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE booking_notifications
		SET status = 'sent',
		    attempts = attempts + 1,
		    sent_at = NOW(),
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`

	if _, err := r.DB().Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkRetry фиксирует неудачную попытку и время следующей
func (r *NotificationRepository) MarkRetry(ctx context.Context, id int64, lastError string, nextAttemptAt time.Time) error {
	query := `
		UPDATE booking_notifications
		SET attempts = attempts + 1,
		    last_error = $2,
		    next_attempt_at = $3,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`

	if _, err := r.DB().Exec(ctx, query, id, lastError, nextAttemptAt); err != nil {
		return fmt.Errorf("mark notification retry: %w", err)
	}
	return nil
}

// MarkFailed окончательно отмечает запись как недоставленную
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	query := `
		UPDATE booking_notifications
		SET status = 'failed',
		    attempts = attempts + 1,
		    last_error = $2,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`

	if _, err := r.DB().Exec(ctx, query, id, lastError); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
