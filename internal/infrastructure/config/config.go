package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Stage     StageConfig
	Feed      FeedConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8600"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StageConfig holds animation queue configuration.
type StageConfig struct {
	MinDisplayMs      int `envconfig:"STAGE_MIN_DISPLAY_MS" default:"2000"`
	TransitionDelayMs int `envconfig:"STAGE_TRANSITION_DELAY_MS" default:"300"`
	MaxPending        int `envconfig:"STAGE_MAX_PENDING" default:"10"`
	AckTimeoutMs      int `envconfig:"STAGE_ACK_TIMEOUT_MS" default:"5000"`
}

// FeedConfig holds the optional snapshot poller configuration. The poller
// is a fallback for deployments without a push bridge on /ingest.
type FeedConfig struct {
	PollEnabled    bool   `envconfig:"FEED_POLL_ENABLED" default:"false"`
	PollURL        string `envconfig:"FEED_POLL_URL" default:""`
	PollIntervalMs int    `envconfig:"FEED_POLL_INTERVAL_MS" default:"2000"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8600",
			Host: "0.0.0.0",
		},
		Stage: StageConfig{
			MinDisplayMs:      2000,
			TransitionDelayMs: 300,
			MaxPending:        10,
			AckTimeoutMs:      5000,
		},
		Feed: FeedConfig{
			PollEnabled:    false,
			PollIntervalMs: 2000,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
