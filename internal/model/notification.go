package model

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationTypeConfirmation NotificationType = "confirmation"
	NotificationTypeCancellation NotificationType = "cancellation"
)

type NotificationStatus string

const (
	NotificationStatusQueued NotificationStatus = "queued"
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationRecord запись очереди уведомлений. Ключ идемпотентности
// (BookingID, Type). Статус меняет только внешний воркер доставки.
type NotificationRecord struct {
	ID            int64              `json:"id"`
	OrgID         string             `json:"org_id"`
	BotID         string             `json:"bot_id"`
	BookingID     int64              `json:"booking_id"`
	Type          NotificationType   `json:"notification_type"`
	Recipient     string             `json:"recipient"`
	Payload       json.RawMessage    `json:"payload"`
	Status        NotificationStatus `json:"status"`
	Attempts      int                `json:"attempts"`
	LastError     *string            `json:"last_error,omitempty"`
	NextAttemptAt *time.Time         `json:"next_attempt_at,omitempty"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
