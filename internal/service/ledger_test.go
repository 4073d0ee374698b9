package service_test

import (
	"context"
	"testing"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccupiedCount(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r := env.resource(t, 5)

	a, err := env.book(t, r.ID, window("09:00", "10:00"), "a@example.com")
	require.NoError(t, err)
	_, err = env.book(t, r.ID, window("09:30", "10:30"), "b@example.com")
	require.NoError(t, err)
	c, err := env.book(t, r.ID, window("10:30", "11:00"), "c@example.com")
	require.NoError(t, err)
	_, err = env.bookings.CancelBooking(ctx, scope, c.ID, "")
	require.NoError(t, err)

	key := model.LedgerKey{Scope: scope, ResourceID: &r.ID, Date: day}

	tests := []struct {
		name      string
		window    model.Window
		excludeID int64
		want      int
	}{
		{"both overlap", window("09:45", "10:15"), 0, 2},
		{"only first", window("09:00", "09:30"), 0, 1},
		{"back to back with second", window("10:30", "11:00"), 0, 0},
		{"excluding first", window("09:45", "10:15"), a.ID, 1},
		{"before opening", window("08:00", "09:00"), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.OccupiedCount(ctx, env.store, key, tt.window, tt.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	other := model.LedgerKey{Scope: scope, ResourceID: &r.ID, Date: day.AddDate(0, 0, 1)}
	got, err := service.OccupiedCount(ctx, env.store, other, window("09:00", "10:00"), 0)
	require.NoError(t, err)
	assert.Zero(t, got)
}
