package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	req := require.New(t)

	cfg := NewConfig()

	req.Equal(":8080", cfg.Port)
	req.Equal([]string{"http://localhost:8080"}, cfg.AllowedOrigins)
	req.Equal(int64(4096), cfg.MaxMessageSize)
	req.Equal(5, cfg.RateLimitBurst)
	req.Equal(time.Second, cfg.RateLimitRefill)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
	req.NoError(cfg.Validate())
}

func TestNewConfigFromEnv_Overrides(t *testing.T) {
	req := require.New(t)

	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "http://example.com,https://chat.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	cfg, err := NewConfigFromEnv()
	req.NoError(err)

	req.Equal(":9090", cfg.Port)
	req.Equal([]string{"http://example.com", "https://chat.example.com"}, cfg.AllowedOrigins)
	req.Equal(int64(1024), cfg.MaxMessageSize)
	req.Equal(10, cfg.RateLimitBurst)
	req.Equal(2*time.Second, cfg.RateLimitRefill)
	req.Equal(5*time.Second, cfg.ShutdownTimeout)
}

func TestNewConfigFromEnv_UnparsableValue(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")

	_, err := NewConfigFromEnv()
	require.Error(t, err)
}

func TestNewConfigFromEnv_OutOfRangeValue(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "-5")

	_, err := NewConfigFromEnv()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)

	cfg := NewConfig()
	cfg.RateLimitBurst = 0
	req.Error(cfg.Validate())

	cfg = NewConfig()
	cfg.AllowedOrigins = nil
	req.Error(cfg.Validate())
}
