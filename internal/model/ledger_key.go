package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LedgerKey ключ учёта занятости: ресурс + дата, либо область + дата для
// бронирований без ресурса. Он же ключ критической секции проверки вместимости.
type LedgerKey struct {
	Scope      Scope
	ResourceID *uuid.UUID
	Date       time.Time
}

// LedgerKeyOf ключ, в котором учитывается бронирование
func LedgerKeyOf(b *Booking) LedgerKey {
	return LedgerKey{Scope: b.Scope(), ResourceID: b.ResourceID, Date: DateOf(b.Date)}
}

// LockKey строковый ключ блокировки
func (k LedgerKey) LockKey() string {
	if k.ResourceID != nil {
		return fmt.Sprintf("booking:%s:%s", k.ResourceID, FormatDate(k.Date))
	}
	return fmt.Sprintf("booking:%s:unassigned:%s", k.Scope, FormatDate(k.Date))
}
