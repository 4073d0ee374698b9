package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ScheduleRule окно доступности ресурса. Это закрытый вариант:
// либо WeeklyRule (повторяется по дню недели), либо DateOverrideRule (одна дата).
type ScheduleRule interface {
	Base() RuleBase
	// Matches проверяет, относится ли правило к дате
	Matches(date time.Time) bool
	isScheduleRule()
}

// RuleBase общие поля обоих вариантов правила
type RuleBase struct {
	ID          uuid.UUID `json:"id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	Start       Clock     `json:"start_time"`
	End         Clock     `json:"end_time"`
	SlotMinutes int       `json:"slot_duration_minutes"`
	Available   bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

func (b RuleBase) Window() Window {
	return Window{Start: b.Start, End: b.End}
}

// Validate проверяет start < end и положительную длительность слота
func (b RuleBase) Validate() error {
	if err := b.Window().Validate(); err != nil {
		return err
	}
	if b.SlotMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive", ErrValidation)
	}
	return nil
}

// WeeklyRule шаблон на день недели (0 = воскресенье, 6 = суббота)
type WeeklyRule struct {
	RuleBase
	Weekday time.Weekday `json:"day_of_week"`
}

func (r WeeklyRule) Base() RuleBase { return r.RuleBase }

func (r WeeklyRule) Matches(date time.Time) bool {
	return date.Weekday() == r.Weekday
}

func (WeeklyRule) isScheduleRule() {}

// DateOverrideRule разовое правило на конкретную дату, перекрывает недельные
type DateOverrideRule struct {
	RuleBase
	Date time.Time `json:"specific_date"`
}

func (r DateOverrideRule) Base() RuleBase { return r.RuleBase }

func (r DateOverrideRule) Matches(date time.Time) bool {
	return DateOf(r.Date).Equal(DateOf(date))
}

func (DateOverrideRule) isScheduleRule() {}

// ApplicableRules выбирает правила, по которым строятся слоты на дату.
// Если на дату есть хоть одно DateOverrideRule, недельные правила игнорируются.
// Приоритет определяется до фильтра доступности, поэтому недоступное
// переопределение закрывает дату целиком.
func ApplicableRules(rules []ScheduleRule, date time.Time) []ScheduleRule {
	var overrides, weekly []ScheduleRule
	for _, rule := range rules {
		if !rule.Matches(date) {
			continue
		}
		switch rule.(type) {
		case DateOverrideRule:
			overrides = append(overrides, rule)
		case WeeklyRule:
			weekly = append(weekly, rule)
		}
	}

	selected := weekly
	if len(overrides) > 0 {
		selected = overrides
	}

	result := make([]ScheduleRule, 0, len(selected))
	for _, rule := range selected {
		if rule.Base().Available {
			result = append(result, rule)
		}
	}
	return result
}

// ExpandRule нарезает окно правила на слоты длиной SlotMinutes.
// Хвост короче длительности слота отбрасывается.
func ExpandRule(rule ScheduleRule) []Window {
	base := rule.Base()
	if base.SlotMinutes <= 0 {
		return nil
	}
	step := Clock(base.SlotMinutes)

	var windows []Window
	for t := base.Start; t+step <= base.End; t += step {
		windows = append(windows, Window{Start: t, End: t + step})
	}
	return windows
}

// OverlappingWeekly находит пары пересекающихся недельных правил.
// Такие правила разворачиваются независимо и дают дублирующиеся слоты.
func OverlappingWeekly(rules []ScheduleRule) [][2]ScheduleRule {
	weekly := make([]ScheduleRule, 0, len(rules))
	for _, rule := range rules {
		if _, ok := rule.(WeeklyRule); ok {
			weekly = append(weekly, rule)
		}
	}
	sort.Slice(weekly, func(i, j int) bool {
		return weekly[i].Base().Start < weekly[j].Base().Start
	})

	var pairs [][2]ScheduleRule
	for i := range weekly {
		for j := i + 1; j < len(weekly); j++ {
			if weekly[i].Base().Window().Overlaps(weekly[j].Base().Window()) {
				pairs = append(pairs, [2]ScheduleRule{weekly[i], weekly[j]})
			}
		}
	}
	return pairs
}

// RuleInput данные нового правила. SlotMinutes == 0 — длительность из настроек.
type RuleInput struct {
	Window      Window
	SlotMinutes int
	Unavailable bool // закрывает окно (имеет смысл для переопределения даты)
}
