package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository"
	"github.com/Freeeeeet/booking_engine/internal/service"
	"github.com/Freeeeeet/booking_engine/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Тесты работают с настоящей базой и запускаются, только если задан TEST_DB_DSN
func newTestStore(t *testing.T) *repository.Store {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	require.NoError(t, goose.SetDialect("postgres"))
	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.UpContext(ctx, db, "."))

	store, err := repository.NewStore(pool, repository.LockModeAdvisory, nil, 2*time.Second, zap.NewNop())
	require.NoError(t, err)
	return store
}

func testScope() model.Scope {
	return model.Scope{OrgID: "test-" + uuid.NewString()[:8], BotID: "bot"}
}

func TestPostgresBookingFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := testScope()
	logger := zap.NewNop()

	settings := service.NewStoreSettings(store, model.BookingSettings{Timezone: "UTC", SlotMinutes: 30, Capacity: 1})
	resources := service.NewResourceService(store, settings, nil, logger)
	bookings := service.NewBookingService(store, settings, logger)
	slots := service.NewSlotService(store, settings, nil, logger)

	date := model.DateOf(time.Now().AddDate(0, 0, 7))

	r, err := resources.CreateResource(ctx, scope, model.ResourceInput{ResourceType: "room", Name: "Room"})
	require.NoError(t, err)
	_, err = resources.AddWeeklyRule(ctx, scope, r.ID, date.Weekday(), model.RuleInput{
		Window: model.Window{Start: model.NewClock(9, 0), End: model.NewClock(10, 0)},
	})
	require.NoError(t, err)

	rules, err := resources.ListRules(ctx, scope, r.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.IsType(t, model.WeeklyRule{}, rules[0])

	available, err := slots.ListAvailableSlots(ctx, scope, r.ID, date)
	require.NoError(t, err)
	require.Len(t, available, 2)

	req := model.CreateBookingRequest{
		Scope:      scope,
		ResourceID: &r.ID,
		Date:       date,
		Window:     available[0].Window(),
		Customer:   model.Customer{Name: "A", Email: "a@example.com"},
	}
	b, err := bookings.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.NotZero(t, b.ID)

	req.Customer.Email = "b@example.com"
	_, err = bookings.CreateBooking(ctx, req)
	require.ErrorIs(t, err, model.ErrCapacityExceeded)

	_, err = bookings.CancelBooking(ctx, scope, b.ID, "test")
	require.NoError(t, err)
	_, err = bookings.CancelBooking(ctx, scope, b.ID, "test")
	require.ErrorIs(t, err, model.ErrStaleState)

	trail, err := bookings.AuditTrail(ctx, scope, b.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)

	records, err := store.ListNotifications(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestPostgresConcurrentCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := testScope()
	logger := zap.NewNop()

	settings := service.NewStoreSettings(store, model.BookingSettings{Timezone: "UTC", SlotMinutes: 30, Capacity: 2})
	resources := service.NewResourceService(store, settings, nil, logger)
	bookings := service.NewBookingService(store, settings, logger)

	r, err := resources.CreateResource(ctx, scope, model.ResourceInput{ResourceType: "room", Name: "Room"})
	require.NoError(t, err)

	date := model.DateOf(time.Now().AddDate(0, 0, 3))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := bookings.CreateBooking(ctx, model.CreateBookingRequest{
				Scope:      scope,
				ResourceID: &r.ID,
				Date:       date,
				Window:     model.Window{Start: model.NewClock(14, 0), End: model.NewClock(15, 0)},
				Customer:   model.Customer{Name: "C", Email: fmt.Sprintf("c%d@example.com", i)},
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, model.ErrCapacityExceeded) && !errors.Is(err, model.ErrBusy) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, success)

	key := model.LedgerKey{Scope: scope, ResourceID: &r.ID, Date: date}
	occupied, err := service.OccupiedCount(ctx, store, key, model.Window{Start: model.NewClock(14, 0), End: model.NewClock(15, 0)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, occupied)
}

func TestPostgresNotificationClaim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	scope := testScope()
	logger := zap.NewNop()

	settings := service.NewStoreSettings(store, model.BookingSettings{Timezone: "UTC", SlotMinutes: 30, Capacity: 1})
	bookings := service.NewBookingService(store, settings, logger)

	b, err := bookings.CreateBooking(ctx, model.CreateBookingRequest{
		Scope:    scope,
		Date:     model.DateOf(time.Now().AddDate(0, 0, 1)),
		Window:   model.Window{Start: model.NewClock(8, 0), End: model.NewClock(9, 0)},
		Customer: model.Customer{Name: "A", Email: "a@example.com"},
	})
	require.NoError(t, err)

	queue := repository.NewNotificationRepository(store.Pool())
	claimed, err := queue.Claim(ctx, 1000, time.Minute)
	require.NoError(t, err)

	var mine []*model.NotificationRecord
	for _, rec := range claimed {
		if rec.BookingID == b.ID {
			mine = append(mine, rec)
		}
	}
	require.Len(t, mine, 1)

	// арендованная запись не выдаётся повторно
	again, err := queue.Claim(ctx, 1000, time.Minute)
	require.NoError(t, err)
	for _, rec := range again {
		assert.NotEqual(t, mine[0].ID, rec.ID)
	}

	require.NoError(t, queue.MarkSent(ctx, mine[0].ID))
	records, err := store.ListNotifications(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.NotificationStatusSent, records[0].Status)
	assert.Equal(t, 1, records[0].Attempts)
	assert.NotNil(t, records[0].SentAt)
}

func TestPostgresPoolExhaustedIsBusy(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := repository.NewStore(pool, repository.LockModeAdvisory, nil, 50*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	held, err := pool.Acquire(ctx)
	require.NoError(t, err)

	err = store.WithinTx(ctx, "", func(ctx context.Context, tx service.Tx) error { return nil })
	require.ErrorIs(t, err, model.ErrBusy)

	held.Release()
	require.NoError(t, store.WithinTx(ctx, "", func(ctx context.Context, tx service.Tx) error { return nil }))
}
