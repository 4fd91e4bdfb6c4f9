// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration.
type Config struct {
	Port         string
	JWTSecret    string
	SyncEndpoint string
	SyncToken    string
	SyncDebounce time.Duration

	AnthropicAPIKey string
	OpenAIAPIKey    string

	Guard GuardConfig
}

// GuardConfig tunes the polling rate limiter.
type GuardConfig struct {
	Window      time.Duration
	MaxRequests int
	MinInterval time.Duration
	Penalty     time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		SyncEndpoint:    getEnv("SYNC_ENDPOINT", ""),
		SyncToken:       getEnv("SYNC_TOKEN", ""),
		SyncDebounce:    getEnvDuration("SYNC_DEBOUNCE", 3*time.Second),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		Guard: GuardConfig{
			Window:      getEnvDuration("GUARD_WINDOW", 10*time.Second),
			MaxRequests: getEnvInt("GUARD_MAX_REQUESTS", 30),
			MinInterval: getEnvDuration("GUARD_MIN_INTERVAL", 100*time.Millisecond),
			Penalty:     getEnvDuration("GUARD_PENALTY", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.SyncEndpoint == "" {
		return fmt.Errorf("SYNC_ENDPOINT cannot be empty")
	}
	if u, err := url.Parse(c.SyncEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SYNC_ENDPOINT must be an absolute URL")
	}
	if c.SyncToken == "" {
		return fmt.Errorf("SYNC_TOKEN cannot be empty")
	}
	if c.SyncDebounce <= 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must be > 0")
	}
	if c.Guard.MaxRequests <= 0 {
		return fmt.Errorf("GUARD_MAX_REQUESTS must be > 0")
	}
	if c.AnthropicAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("at least one of ANTHROPIC_API_KEY or OPENAI_API_KEY must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
