package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
)

// SettingsRepository настройки бронирования области. Таблицу ведёт
// сервис конфигурации; движок её только читает.
type SettingsRepository struct {
	base.Repository
}

func NewSettingsRepository(db base.DBTX) *SettingsRepository {
	return &SettingsRepository{Repository: base.NewRepository(db)}
}

// Get настройки области; nil — строки нет. Пустые колонки возвращаются как
// незаданные значения, их заполняет BookingSettings.WithDefaults.
func (r *SettingsRepository) Get(ctx context.Context, scope model.Scope) (*model.BookingSettings, error) {
	query := `
		SELECT COALESCE(timezone, ''),
		       COALESCE(slot_duration_minutes, 0),
		       COALESCE(capacity_per_slot, 0),
		       COALESCE(min_notice_minutes, -1),
		       COALESCE(max_future_days, -1),
		       auto_confirm,
		       available_windows
		FROM booking_settings
		WHERE org_id = $1 AND bot_id = $2
	`

	var s model.BookingSettings
	err := r.DB().QueryRow(ctx, query, scope.OrgID, scope.BotID).Scan(
		&s.Timezone,
		&s.SlotMinutes,
		&s.Capacity,
		&s.MinNoticeMinutes,
		&s.MaxFutureDays,
		&s.AutoConfirm,
		&s.Windows,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	return &s, nil
}

// Upsert сохраняет настройки области
func (r *SettingsRepository) Upsert(ctx context.Context, scope model.Scope, s model.BookingSettings) error {
	query := `
		INSERT INTO booking_settings (org_id, bot_id, timezone, slot_duration_minutes, capacity_per_slot,
			min_notice_minutes, max_future_days, auto_confirm, available_windows)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		ON CONFLICT (org_id, bot_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
		    slot_duration_minutes = EXCLUDED.slot_duration_minutes,
		    capacity_per_slot = EXCLUDED.capacity_per_slot,
		    min_notice_minutes = EXCLUDED.min_notice_minutes,
		    max_future_days = EXCLUDED.max_future_days,
		    auto_confirm = EXCLUDED.auto_confirm,
		    available_windows = EXCLUDED.available_windows,
		    updated_at = NOW()
	`

	_, err := r.DB().Exec(
		ctx, query,
		scope.OrgID,
		scope.BotID,
		s.Timezone,
		s.SlotMinutes,
		s.Capacity,
		s.MinNoticeMinutes,
		s.MaxFutureDays,
		s.AutoConfirm,
		s.Windows,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	return nil
}
