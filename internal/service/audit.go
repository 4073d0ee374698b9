package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
)

// windowDetails окно бронирования в записи журнала
type windowDetails struct {
	Date  string      `json:"date"`
	Start model.Clock `json:"start_time"`
	End   model.Clock `json:"end_time"`
}

func windowOf(b *model.Booking) windowDetails {
	return windowDetails{Date: model.FormatDate(b.Date), Start: b.Start, End: b.End}
}

// appendAudit пишет запись журнала в той же транзакции, что и изменение бронирования
func appendAudit(ctx context.Context, tx Tx, booking *model.Booking, action model.AuditAction, details any, now time.Time) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	entry := &model.AuditLogEntry{
		OrgID:     booking.OrgID,
		BotID:     booking.BotID,
		BookingID: booking.ID,
		Action:    action,
		Details:   raw,
		CreatedAt: now,
	}
	if err := tx.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append %s audit entry: %w", action, err)
	}
	return nil
}
