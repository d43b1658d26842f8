package bookingctl

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(args ...string) (Config, error) {
	fs := flag.NewFlagSet("bookingctl", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	return ParseConfig(fs, args)
}

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("BOOKING_API_URL", "")
	t.Setenv("BOOKING_ADMIN_TOKEN", "")
	t.Setenv("ADMIN_JWT_SECRET", "")

	cfg, err := parse("slots")
	require.NoError(t, err)
	assert.Equal(t, CmdSlots, cfg.Command)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, 7*time.Second, cfg.Interval)
	assert.Equal(t, 5, cfg.MaxFailures)
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("BOOKING_API_URL", "http://api.test")
	t.Setenv("BOOKING_ADMIN_TOKEN", "tok")
	t.Setenv("ADMIN_JWT_SECRET", "sec")

	cfg, err := parse("-api-url", "http://other.test", "admin", "list", "-status", "pending")
	require.NoError(t, err)
	assert.Equal(t, "http://other.test", cfg.APIURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "sec", cfg.Secret)
	assert.Equal(t, ActionList, cfg.Action)
	assert.Equal(t, "pending", cfg.Status)
}

func TestParseConfigFlagsAfterCommand(t *testing.T) {
	cfg, err := parse("book", "-schedule", "12", "-name", "Anna", "-accept-privacy", "-accept-terms")
	require.NoError(t, err)
	assert.Equal(t, int64(12), cfg.EventID)
	assert.Equal(t, "Anna", cfg.Name)
	assert.True(t, cfg.AcceptPrivacy)
	assert.False(t, cfg.AcceptPersonalData)
	assert.True(t, cfg.AcceptTerms)

	cfg, err = parse("status", "-payment-id", "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", cfg.PaymentID)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"refund"}},
		{name: "admin without action", args: []string{"admin"}},
		{name: "admin flag instead of action", args: []string{"admin", "-id", "1"}},
		{name: "unknown admin action", args: []string{"admin", "purge"}},
		{name: "book without event", args: []string{"book"}},
		{name: "set-status without id", args: []string{"admin", "set-status", "-status", "confirmed"}},
		{name: "set-status without status", args: []string{"admin", "set-status", "-id", "3"}},
		{name: "delete without id", args: []string{"admin", "delete"}},
		{name: "bad interval", args: []string{"status", "-interval", "0s"}},
		{name: "trailing args", args: []string{"slots", "extra"}},
		{name: "unknown flag", args: []string{"-nope", "slots"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(tc.args...)
			require.Error(t, err)
		})
	}
}
