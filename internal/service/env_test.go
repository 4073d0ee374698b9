package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/lock"
	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/memory"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	scope = model.Scope{OrgID: "org-1", BotID: "bot-1"}
	// 2025-12-25 — четверг
	day = time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
)

func clock(s string) model.Clock {
	c, err := model.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func window(start, end string) model.Window {
	return model.Window{Start: clock(start), End: clock(end)}
}

type testEnv struct {
	store         *memory.Store
	locker        *lock.Local
	now           time.Time
	slots         *service.SlotService
	bookings      *service.BookingService
	resources     *service.ResourceService
	notifications *service.NotificationService
}

func defaultSettings() model.BookingSettings {
	return model.BookingSettings{
		Timezone:    "UTC",
		SlotMinutes: 30,
		Capacity:    1,
	}
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithLockWait(t, 2*time.Second)
}

func newEnvWithLockWait(t *testing.T, wait time.Duration) *testEnv {
	t.Helper()

	locker := lock.NewLocal(wait)
	env := &testEnv{
		store:  memory.NewStoreWithLocker(locker),
		locker: locker,
		now:    time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC),
	}
	nowFn := func() time.Time { return env.now }

	logger := zap.NewNop()
	settings := service.NewStoreSettings(env.store, defaultSettings())
	rules := service.NewRuleCache(16, time.Minute)

	env.slots = service.NewSlotService(env.store, settings, rules, logger).WithClock(nowFn)
	env.bookings = service.NewBookingService(env.store, settings, logger).WithClock(nowFn)
	env.resources = service.NewResourceService(env.store, settings, rules, logger).WithClock(nowFn)
	env.notifications = service.NewNotificationService(env.store, logger).WithClock(nowFn)
	return env
}

// resource создаёт ресурс с правилом на четверг 09:00–12:00, слоты по 30 минут
func (e *testEnv) resource(t *testing.T, capacity int) *model.Resource {
	t.Helper()
	ctx := context.Background()

	r, err := e.resources.CreateResource(ctx, scope, model.ResourceInput{
		ResourceType:    "doctor",
		Name:            "Dr. " + uuid.NewString()[:8],
		CapacityPerSlot: capacity,
	})
	require.NoError(t, err)

	_, err = e.resources.AddWeeklyRule(ctx, scope, r.ID, time.Thursday, model.RuleInput{
		Window:      window("09:00", "12:00"),
		SlotMinutes: 30,
	})
	require.NoError(t, err)
	return r
}

func (e *testEnv) book(t *testing.T, resourceID uuid.UUID, w model.Window, email string) (*model.Booking, error) {
	t.Helper()
	id := resourceID
	return e.bookings.CreateBooking(context.Background(), model.CreateBookingRequest{
		Scope:      scope,
		ResourceID: &id,
		Date:       day,
		Window:     w,
		Customer:   model.Customer{Name: "Customer", Email: email},
	})
}

func startsOf(slots []model.Slot) []string {
	starts := make([]string, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.Start.String())
	}
	return starts
}
