package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/model"
)

// SettingsProvider источник настроек области (политика автоподтверждения,
// длительность и вместимость по умолчанию, часовой пояс)
type SettingsProvider interface {
	Settings(ctx context.Context, scope model.Scope) (model.BookingSettings, error)
}

// StoreSettings читает настройки из хранилища и дополняет их значениями по умолчанию
type StoreSettings struct {
	store    Reader
	defaults model.BookingSettings
}

func NewStoreSettings(store Reader, defaults model.BookingSettings) *StoreSettings {
	return &StoreSettings{store: store, defaults: defaults}
}

func (s *StoreSettings) Settings(ctx context.Context, scope model.Scope) (model.BookingSettings, error) {
	stored, err := s.store.GetSettings(ctx, scope)
	if err != nil {
		return model.BookingSettings{}, fmt.Errorf("get settings: %w", err)
	}
	settings := s.defaults
	if stored != nil {
		settings = stored.WithDefaults(s.defaults)
	}
	if err := settings.Validate(); err != nil {
		return model.BookingSettings{}, fmt.Errorf("settings of %s: %w", scope, err)
	}
	return settings, nil
}
