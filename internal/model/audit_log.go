package model

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionConfirm    AuditAction = "confirm"
	AuditActionReschedule AuditAction = "reschedule"
	AuditActionCancel     AuditAction = "cancel"
	AuditActionComplete   AuditAction = "complete"
	AuditActionNoShow     AuditAction = "no_show"
)

// AuditLogEntry неизменяемая запись журнала. Пишется в той же транзакции, что
// и изменение бронирования; не обновляется и не удаляется.
type AuditLogEntry struct {
	ID        int64           `json:"id"`
	OrgID     string          `json:"org_id"`
	BotID     string          `json:"bot_id"`
	BookingID int64           `json:"booking_id"`
	Action    AuditAction     `json:"action"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}
