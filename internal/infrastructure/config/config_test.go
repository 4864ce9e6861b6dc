package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8600", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Stage config
	assert.Equal(t, 2000, cfg.Stage.MinDisplayMs)
	assert.Equal(t, 300, cfg.Stage.TransitionDelayMs)
	assert.Equal(t, 10, cfg.Stage.MaxPending)
	assert.Equal(t, 5000, cfg.Stage.AckTimeoutMs)

	// Feed config
	assert.False(t, cfg.Feed.PollEnabled)
	assert.Equal(t, 2000, cfg.Feed.PollIntervalMs)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8600", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                      "9000",
		"HOST":                      "127.0.0.1",
		"STAGE_MIN_DISPLAY_MS":      "1500",
		"STAGE_TRANSITION_DELAY_MS": "100",
		"STAGE_MAX_PENDING":         "25",
		"STAGE_ACK_TIMEOUT_MS":      "2500",
		"FEED_POLL_ENABLED":         "true",
		"FEED_POLL_URL":             "http://localhost:9100/agents",
		"FEED_POLL_INTERVAL_MS":     "500",
		"LOG_LEVEL":                 "debug",
		"LOG_DEV":                   "true",
		"RATE_LIMIT_RPS":            "500",
		"RATE_LIMIT_BURST":          "1000",
		"RATE_LIMIT_ENABLED":        "false",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	// Verify server config
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Verify stage config
	assert.Equal(t, 1500, cfg.Stage.MinDisplayMs)
	assert.Equal(t, 100, cfg.Stage.TransitionDelayMs)
	assert.Equal(t, 25, cfg.Stage.MaxPending)
	assert.Equal(t, 2500, cfg.Stage.AckTimeoutMs)

	// Verify feed config
	assert.True(t, cfg.Feed.PollEnabled)
	assert.Equal(t, "http://localhost:9100/agents", cfg.Feed.PollURL)
	assert.Equal(t, 500, cfg.Feed.PollIntervalMs)

	// Verify logging config
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	// Verify rate limit config
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("PORT", "3000")
	require.NoError(t, err)
	defer os.Unsetenv("PORT")

	err = os.Setenv("STAGE_MAX_PENDING", "4")
	require.NoError(t, err)
	defer os.Unsetenv("STAGE_MAX_PENDING")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Stage.MaxPending)

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 2000, cfg.Stage.MinDisplayMs)
	assert.Equal(t, "info", cfg.Logging.Level)
}
