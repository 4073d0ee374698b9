package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("LOCK_MODE", "local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.LockWait)
	assert.Equal(t, 1024, cfg.RuleCacheSize)
	assert.Equal(t, time.Duration(0), cfg.AutoCompleteInterval)
	assert.Equal(t, 30, cfg.Defaults.SlotMinutes)
	assert.Equal(t, 1, cfg.Defaults.Capacity)
	assert.Equal(t, 60, cfg.Defaults.MinNoticeMinutes)
	assert.Equal(t, 60, cfg.Defaults.MaxFutureDays)
	assert.Equal(t, "booking.notifications", cfg.Notify.Exchange)

	defaults := cfg.BookingDefaults()
	assert.Equal(t, "UTC", defaults.Timezone)
	assert.False(t, defaults.AutoConfirm)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/booking")
	t.Setenv("LOCK_MODE", "redis")
	t.Setenv("LOCK_WAIT", "750ms")
	t.Setenv("DEFAULT_CAPACITY", "3")
	t.Setenv("DEFAULT_AUTO_CONFIRM", "true")
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Moscow")
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.LockWait)
	assert.Equal(t, 3, cfg.Defaults.Capacity)
	assert.True(t, cfg.Defaults.AutoConfirm)
	assert.Equal(t, "Europe/Moscow", cfg.BookingDefaults().Timezone)
	assert.Equal(t, 8, cfg.Notify.MaxAttempts)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"STORAGE": "postgres", "DB_DSN": ""}},
		{"unknown storage", map[string]string{"STORAGE": "sqlite"}},
		{"advisory on memory", map[string]string{"STORAGE": "memory", "LOCK_MODE": "advisory"}},
		{"unknown lock mode", map[string]string{"STORAGE": "memory", "LOCK_MODE": "zookeeper"}},
		{"zero capacity", map[string]string{"STORAGE": "memory", "LOCK_MODE": "local", "DEFAULT_CAPACITY": "0"}},
		{"bad timezone", map[string]string{"STORAGE": "memory", "LOCK_MODE": "local", "DEFAULT_TIMEZONE": "Mars/Base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
