package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
)

// AuditLogRepository журнал изменений бронирований; только вставка и чтение
type AuditLogRepository struct {
	base.Repository
}

func NewAuditLogRepository(db base.DBTX) *AuditLogRepository {
	return &AuditLogRepository{Repository: base.NewRepository(db)}
}

// Append добавляет запись журнала
func (r *AuditLogRepository) Append(ctx context.Context, entry *model.AuditLogEntry) error {
	query := `
		INSERT INTO booking_audit_logs (org_id, bot_id, booking_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.DB().QueryRow(
		ctx, query,
		entry.OrgID,
		entry.BotID,
		entry.BookingID,
		entry.Action,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

// ListByBooking записи бронирования в порядке добавления
func (r *AuditLogRepository) ListByBooking(ctx context.Context, bookingID int64) ([]*model.AuditLogEntry, error) {
	query := `
		SELECT id, org_id, bot_id, booking_id, action, details, created_at
		FROM booking_audit_logs
		WHERE booking_id = $1
		ORDER BY id
	`

	rows, err := r.DB().Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditLogEntry
	for rows.Next() {
		var e model.AuditLogEntry
		err := rows.Scan(
			&e.ID,
			&e.OrgID,
			&e.BotID,
			&e.BookingID,
			&e.Action,
			&e.Details,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
