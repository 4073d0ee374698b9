package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Clock время суток в минутах от полуночи. Допустимый диапазон 00:00–24:00,
// 24:00 используется только как конец окна.
type Clock int

const (
	MinutesPerDay Clock = 24 * 60

	microsecondsPerMinute = int64(time.Minute / time.Microsecond)
	dateLayout            = "2006-01-02"
)

// NewClock создаёт время суток из часов и минут
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock разбирает "15:04" или "15:04:05" (секунды отбрасываются)
func ParseClock(s string) (Clock, error) {
	if s == "24:00" || s == "24:00:00" {
		return MinutesPerDay, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: invalid time of day %q", ErrValidation, s)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) Valid() bool {
	return c >= 0 && c <= MinutesPerDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On возвращает момент времени этого часа в дату date в зоне loc
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(c) * time.Minute)
}

// ScanTime реализует pgtype.TimeScanner для колонок типа time
func (c *Clock) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into Clock")
	}
	*c = Clock(v.Microseconds / microsecondsPerMinute)
	return nil
}

// TimeValue реализует pgtype.TimeValuer
func (c Clock) TimeValue() (pgtype.Time, error) {
	return pgtype.Time{Microseconds: int64(c) * microsecondsPerMinute, Valid: true}, nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DateOf отрезает время суток: дата бронирования хранится как полночь UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату в формате 2006-01-02
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return t, nil
}

// FormatDate форматирует дату в 2006-01-02
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
