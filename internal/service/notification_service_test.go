package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueIsIdempotent(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r := env.resource(t, 1)

	b, err := env.book(t, r.ID, window("09:00", "09:30"), "a@example.com")
	require.NoError(t, err)

	created, err := env.notifications.Enqueue(ctx, scope, b.ID, model.NotificationTypeConfirmation, "a@example.com", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, created, "confirmation is queued on create")

	created, err = env.notifications.Enqueue(ctx, scope, b.ID, model.NotificationTypeCancellation, "a@example.com", json.RawMessage(`{"manual":true}`))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.notifications.Enqueue(ctx, scope, b.ID, model.NotificationTypeCancellation, "a@example.com", json.RawMessage(`{"manual":true}`))
	require.NoError(t, err)
	assert.False(t, created)

	records, err := env.notifications.ListForBooking(ctx, scope, b.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(records[0].Payload, &payload))
	assert.Equal(t, "2025-12-25", payload["booking_date"])
	assert.Equal(t, "09:00", payload["start_time"])
	assert.Equal(t, r.ID.String(), payload["resource_id"])
}

func TestEnqueueValidation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.notifications.Enqueue(ctx, scope, 42, model.NotificationTypeConfirmation, "a@example.com", nil)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.notifications.Enqueue(ctx, scope, 42, model.NotificationTypeConfirmation, "", nil)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestEnqueueWithoutPayloadStoresEmptyObject(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r := env.resource(t, 1)

	b, err := env.book(t, r.ID, window("09:00", "09:30"), "a@example.com")
	require.NoError(t, err)

	reminder := model.NotificationType("reminder")
	created, err := env.notifications.Enqueue(ctx, scope, b.ID, reminder, "a@example.com", nil)
	require.NoError(t, err)
	assert.True(t, created)

	records, err := env.notifications.ListForBooking(ctx, scope, b.ID)
	require.NoError(t, err)

	var found bool
	for _, rec := range records {
		if rec.Type == reminder {
			found = true
			assert.JSONEq(t, `{}`, string(rec.Payload))
		}
	}
	assert.True(t, found)
}
