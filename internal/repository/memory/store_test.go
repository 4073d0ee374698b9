package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScope = model.Scope{OrgID: "org-1", BotID: "bot-1"}

func newBooking() *model.Booking {
	return &model.Booking{
		OrgID:  testScope.OrgID,
		BotID:  testScope.BotID,
		Date:   time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
		Start:  model.NewClock(9, 0),
		End:    model.NewClock(9, 30),
		Status: model.BookingStatusPending,
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := NewStore(time.Second)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, "k", func(ctx context.Context, tx service.Tx) error {
		require.NoError(t, tx.InsertBooking(ctx, newBooking()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.ListBookings(ctx, testScope, model.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	// последовательность тоже откатывается
	b := newBooking()
	require.NoError(t, store.WithinTx(ctx, "k", func(ctx context.Context, tx service.Tx) error {
		return tx.InsertBooking(ctx, b)
	}))
	assert.Equal(t, int64(1), b.ID)
}

func TestUpdateBookingStatusGuard(t *testing.T) {
	store := NewStore(time.Second)
	ctx := context.Background()

	b := newBooking()
	require.NoError(t, store.WithinTx(ctx, "", func(ctx context.Context, tx service.Tx) error {
		return tx.InsertBooking(ctx, b)
	}))

	b.Status = model.BookingStatusConfirmed
	var updated bool
	require.NoError(t, store.WithinTx(ctx, "", func(ctx context.Context, tx service.Tx) (err error) {
		updated, err = tx.UpdateBookingStatus(ctx, b, model.BookingStatusPending)
		return err
	}))
	assert.True(t, updated)

	b.Status = model.BookingStatusCancelled
	require.NoError(t, store.WithinTx(ctx, "", func(ctx context.Context, tx service.Tx) (err error) {
		updated, err = tx.UpdateBookingStatus(ctx, b, model.BookingStatusPending)
		return err
	}))
	assert.False(t, updated)

	stored, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, stored.Status)
}

func TestReadsReturnCopies(t *testing.T) {
	store := NewStore(time.Second)
	ctx := context.Background()

	b := newBooking()
	require.NoError(t, store.WithinTx(ctx, "", func(ctx context.Context, tx service.Tx) error {
		return tx.InsertBooking(ctx, b)
	}))

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	got.Status = model.BookingStatusCancelled

	again, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, again.Status)

	missing, err := store.GetBooking(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithinTxBusyWhileKeyHeld(t *testing.T) {
	store := NewStore(20 * time.Millisecond)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithinTx(ctx, "booking:x", func(ctx context.Context, tx service.Tx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	// ключ удерживает первая транзакция
	err := store.WithinTx(ctx, "booking:x", func(ctx context.Context, tx service.Tx) error {
		return nil
	})
	require.ErrorIs(t, err, model.ErrBusy)

	close(release)
	require.NoError(t, <-done)
}
