package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type BookingRepository struct {
	base.Repository
}

func NewBookingRepository(db base.DBTX) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(db)}
}

const bookingColumns = `id, org_id, bot_id, resource_id, booking_date, start_time, end_time, status,
		customer_name, customer_email, customer_phone, form_data, notes,
		created_at, updated_at, confirmed_at, cancelled_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.OrgID,
		&b.BotID,
		&b.ResourceID,
		&b.Date,
		&b.Start,
		&b.End,
		&b.Status,
		&b.Customer.Name,
		&b.Customer.Email,
		&b.Customer.Phone,
		&b.FormData,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.ConfirmedAt,
		&b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	b.Date = model.DateOf(b.Date)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (org_id, bot_id, resource_id, booking_date, start_time, end_time, status,
			customer_name, customer_email, customer_phone, form_data, notes, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := r.DB().QueryRow(
		ctx, query,
		booking.OrgID,
		booking.BotID,
		booking.ResourceID,
		booking.Date,
		booking.Start,
		booking.End,
		booking.Status,
		booking.Customer.Name,
		booking.Customer.Email,
		booking.Customer.Phone,
		booking.FormData,
		booking.Notes,
		booking.ConfirmedAt,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.DB().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListByScope бронирования области с необязательными фильтрами
func (r *BookingRepository) ListByScope(ctx context.Context, scope model.Scope, filter model.BookingFilter) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE org_id = $1 AND bot_id = $2
		  AND ($3::text IS NULL OR status = $3)
		  AND ($4::date IS NULL OR booking_date >= $4)
		ORDER BY booking_date, start_time, id
	`

	var fromDate *time.Time
	if filter.FromDate != nil {
		d := model.DateOf(*filter.FromDate)
		fromDate = &d
	}

	rows, err := r.DB().Query(ctx, query, scope.OrgID, scope.BotID, filter.Status, fromDate)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return collectBookings(rows)
}

// ListActive бронирования ключа учёта, занимающие место
func (r *BookingRepository) ListActive(ctx context.Context, key model.LedgerKey) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE org_id = $1 AND bot_id = $2
		  AND booking_date = $3
		  AND resource_id IS NOT DISTINCT FROM $4
		  AND status NOT IN ('cancelled', 'rejected')
		ORDER BY start_time, id
	`

	rows, err := r.DB().Query(ctx, query, key.Scope.OrgID, key.Scope.BotID, key.Date, key.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}

	return collectBookings(rows)
}

// ListElapsedConfirmed подтверждённые бронирования с датой раньше before
func (r *BookingRepository) ListElapsedConfirmed(ctx context.Context, before time.Time, limit int) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed' AND booking_date < $1
		ORDER BY booking_date, end_time, id
		LIMIT $2
	`

	rows, err := r.DB().Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list elapsed bookings: %w", err)
	}

	return collectBookings(rows)
}

// UpdateWindow переносит бронирование, если его статус всё ещё expected
func (r *BookingRepository) UpdateWindow(ctx context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET booking_date = $3,
		    start_time = $4,
		    end_time = $5,
		    form_data = $6,
		    updated_at = $7
		WHERE id = $1 AND status = $2
	`

	affected, err := r.ExecAffected(
		ctx, query,
		booking.ID,
		expected,
		booking.Date,
		booking.Start,
		booking.End,
		booking.FormData,
		booking.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update booking window: %w", err)
	}

	return affected > 0, nil
}

// UpdateStatus меняет статус, если он всё ещё expected
func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3,
		    confirmed_at = $4,
		    cancelled_at = $5,
		    updated_at = $6
		WHERE id = $1 AND status = $2
	`

	affected, err := r.ExecAffected(
		ctx, query,
		booking.ID,
		expected,
		booking.Status,
		booking.ConfirmedAt,
		booking.CancelledAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}

	return affected > 0, nil
}
