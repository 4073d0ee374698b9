package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает подтверждения
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCompleted BookingStatus = "completed" // Завершено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
	BookingStatusNoShow    BookingStatus = "no_show"   // Клиент не пришёл

	// встречается в старых строках, в занятость не входит
	bookingStatusRejected BookingStatus = "rejected"
)

// допустимые переходы; всё, чего здесь нет, даёт ErrStaleState
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow},
}

// CanTransitionTo проверяет переход по графу состояний
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal статус, из которого переходов нет
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Occupies учитывается ли бронирование с таким статусом в занятости окна
func (s BookingStatus) Occupies() bool {
	return s != BookingStatusCancelled && s != bookingStatusRejected
}

// Customer контактные данные клиента
type Customer struct {
	Name  string  `json:"customer_name"`
	Email string  `json:"customer_email"`
	Phone *string `json:"customer_phone,omitempty"`
}

type Booking struct {
	ID          int64           `json:"id"`
	OrgID       string          `json:"org_id"`
	BotID       string          `json:"bot_id"`
	ResourceID  *uuid.UUID      `json:"resource_id"` // nil — бронирование без ресурса
	Date        time.Time       `json:"booking_date"`
	Start       Clock           `json:"start_time"`
	End         Clock           `json:"end_time"`
	Status      BookingStatus   `json:"status"`
	Customer    Customer        `json:"customer"`
	FormData    json.RawMessage `json:"form_data,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
}

func (b *Booking) Window() Window {
	return Window{Start: b.Start, End: b.End}
}

func (b *Booking) Scope() Scope {
	return Scope{OrgID: b.OrgID, BotID: b.BotID}
}

// CreateBookingRequest запрос на создание бронирования
type CreateBookingRequest struct {
	Scope      Scope
	ResourceID *uuid.UUID
	Date       time.Time
	Window     Window
	Customer   Customer
	FormData   json.RawMessage
	Notes      *string
}

// RescheduleRequest перенос бронирования; Date == nil — та же дата
type RescheduleRequest struct {
	Date     *time.Time
	Window   Window
	FormData json.RawMessage
}

// BookingFilter фильтр списка бронирований
type BookingFilter struct {
	Status   *BookingStatus
	FromDate *time.Time
}
