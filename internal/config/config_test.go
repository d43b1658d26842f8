package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsWithMemoryStorage(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BOOKING_RATE_WINDOW", "30s")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "localhost:9090", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Booking.RateWindow)
	assert.Equal(t, 5, cfg.Booking.RateLimit)
	assert.Equal(t, 24*time.Hour, cfg.Booking.IdempotencyTTL)
	assert.Equal(t, "https://api.yookassa.ru/v3", cfg.YooKassa.APIBase)
	assert.False(t, cfg.YooKassa.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestNewPostgresRequiresCredentials(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "")
	t.Setenv("POSTGRES_DB", "")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")

	t.Setenv("POSTGRES_USER", "studio")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "studio")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE")
}

func TestNewRejectsBadDuration(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("IDEMPOTENCY_TTL", "tomorrow")

	_, err := New()
	require.Error(t, err)
}

func TestYooKassaEnabled(t *testing.T) {
	t.Parallel()

	assert.True(t, YooKassaConfig{ShopID: "1", SecretKey: "s"}.Enabled())
	assert.False(t, YooKassaConfig{ShopID: "1"}.Enabled())
}
