package model

import (
	"fmt"
	"time"
)

// WeeklyWindow рабочее окно организации для бронирований без ресурса
type WeeklyWindow struct {
	Weekday time.Weekday `json:"day"`
	Start   Clock        `json:"start"`
	End     Clock        `json:"end"`
}

// BookingSettings настройки бронирования области. Владелец — внешний
// коллаборатор конфигурации, движок их только читает.
type BookingSettings struct {
	Timezone         string         `json:"timezone"`
	SlotMinutes      int            `json:"slot_duration_minutes"`
	Capacity         int            `json:"capacity_per_slot"`
	MinNoticeMinutes int            `json:"min_notice_minutes"`
	MaxFutureDays    int            `json:"max_future_days"`
	AutoConfirm      bool           `json:"auto_confirm"`
	Windows          []WeeklyWindow `json:"available_windows"`
}

// WithDefaults заполняет незаданные поля значениями по умолчанию
func (s BookingSettings) WithDefaults(d BookingSettings) BookingSettings {
	if s.Timezone == "" {
		s.Timezone = d.Timezone
	}
	if s.SlotMinutes <= 0 {
		s.SlotMinutes = d.SlotMinutes
	}
	if s.Capacity <= 0 {
		s.Capacity = d.Capacity
	}
	if s.MinNoticeMinutes < 0 {
		s.MinNoticeMinutes = d.MinNoticeMinutes
	}
	if s.MaxFutureDays < 0 {
		s.MaxFutureDays = d.MaxFutureDays
	}
	return s
}

// Validate проверяет, что часовой пояс известен
func (s BookingSettings) Validate() error {
	if s.Timezone == "" {
		return nil
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrValidation, s.Timezone)
	}
	return nil
}

// Location зона настроек; пустая — UTC. Неизвестную отсекает Validate.
func (s BookingSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeeklyRules превращает рабочие окна в недельные правила с длительностью слота по умолчанию
func (s BookingSettings) WeeklyRules() []ScheduleRule {
	rules := make([]ScheduleRule, 0, len(s.Windows))
	for _, w := range s.Windows {
		rules = append(rules, WeeklyRule{
			RuleBase: RuleBase{
				Start:       w.Start,
				End:         w.End,
				SlotMinutes: s.SlotMinutes,
				Available:   true,
			},
			Weekday: w.Weekday,
		})
	}
	return rules
}
