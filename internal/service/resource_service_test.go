package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateResource(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.store.PutSettings(scope, model.BookingSettings{Capacity: 4})

	r, err := env.resources.CreateResource(ctx, scope, model.ResourceInput{ResourceType: "room", Name: "Room A"})
	require.NoError(t, err)
	assert.Equal(t, 4, r.CapacityPerSlot)
	assert.True(t, r.IsActive)

	_, err = env.resources.CreateResource(ctx, scope, model.ResourceInput{ResourceType: "room", Name: "Room B", CapacityPerSlot: -1})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = env.resources.CreateResource(ctx, scope, model.ResourceInput{ResourceType: "room"})
	require.ErrorIs(t, err, model.ErrValidation)

	list, err := env.resources.ListResources(ctx, scope, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)
}

func TestUpdateResource(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r := env.resource(t, 1)

	capacity := 3
	name := "Dr. Renamed"
	updated, err := env.resources.UpdateResource(ctx, scope, r.ID, model.ResourcePatch{Name: &name, CapacityPerSlot: &capacity})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Renamed", updated.Name)
	assert.Equal(t, 3, updated.CapacityPerSlot)

	zero := 0
	_, err = env.resources.UpdateResource(ctx, scope, r.ID, model.ResourcePatch{CapacityPerSlot: &zero})
	require.ErrorIs(t, err, model.ErrValidation)

	got, err := env.resources.GetResource(ctx, scope, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CapacityPerSlot)
}

func TestDeactivateResourceKeepsBookings(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r := env.resource(t, 1)

	b, err := env.book(t, r.ID, window("09:00", "09:30"), "a@example.com")
	require.NoError(t, err)

	_, err = env.resources.DeactivateResource(ctx, scope, r.ID)
	require.NoError(t, err)

	rules, err := env.resources.ListRules(ctx, scope, r.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)

	active, err := env.resources.ListResources(ctx, scope, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := env.bookings.GetBooking(ctx, scope, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, got.Status)

	// отмена на деактивированном ресурсе проходит
	_, err = env.bookings.CancelBooking(ctx, scope, b.ID, "resource closed")
	require.NoError(t, err)
}

func TestAddRuleValidation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r := env.resource(t, 1)

	_, err := env.resources.AddWeeklyRule(ctx, scope, r.ID, time.Thursday, model.RuleInput{Window: window("09:00", "10:00")})
	require.ErrorIs(t, err, model.ErrValidation, "same weekday and start")

	_, err = env.resources.AddWeeklyRule(ctx, scope, r.ID, time.Weekday(7), model.RuleInput{Window: window("09:00", "10:00")})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = env.resources.AddWeeklyRule(ctx, scope, r.ID, time.Friday, model.RuleInput{Window: window("10:00", "09:00")})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = env.resources.AddWeeklyRule(ctx, scope, r.ID, time.Friday, model.RuleInput{Window: window("09:00", "10:00"), SlotMinutes: -15})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = env.resources.AddWeeklyRule(ctx, scope, uuid.New(), time.Friday, model.RuleInput{Window: window("09:00", "10:00")})
	require.ErrorIs(t, err, model.ErrNotFound)

	rule, err := env.resources.AddWeeklyRule(ctx, scope, r.ID, time.Friday, model.RuleInput{Window: window("09:00", "10:00")})
	require.NoError(t, err)
	assert.Equal(t, 30, rule.Base().SlotMinutes, "slot duration from settings")
	assert.IsType(t, model.WeeklyRule{}, rule)

	over, err := env.resources.AddDateOverride(ctx, scope, r.ID, day, model.RuleInput{Window: window("09:00", "10:00")})
	require.NoError(t, err)
	assert.IsType(t, model.DateOverrideRule{}, over)

	_, err = env.resources.AddDateOverride(ctx, scope, r.ID, day, model.RuleInput{Window: window("09:00", "11:00")})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestDeleteRule(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	r := env.resource(t, 1)

	rules, err := env.resources.ListRules(ctx, scope, r.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	slots, err := env.slots.ListAvailableSlots(ctx, scope, r.ID, day)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	err = env.resources.DeleteRule(ctx, model.Scope{OrgID: "org-2", BotID: "bot-1"}, rules[0].Base().ID)
	require.ErrorIs(t, err, model.ErrValidation)

	require.NoError(t, env.resources.DeleteRule(ctx, scope, rules[0].Base().ID))
	require.ErrorIs(t, env.resources.DeleteRule(ctx, scope, rules[0].Base().ID), model.ErrNotFound)

	slots, err = env.slots.ListAvailableSlots(ctx, scope, r.ID, day)
	require.NoError(t, err)
	assert.Empty(t, slots)
}
