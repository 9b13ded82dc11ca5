// Package config provides centralized configuration for the hookmill server.
// All configurable values are loaded from environment variables with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite database file.
	DBPath string

	// APIKey is the OpenRouter credential used to seed the persisted
	// settings when none has been saved yet.
	APIKey string

	// BaseURL is the chat-completion endpoint base URL.
	BaseURL string

	// RetryDelay is the fixed wait before the single retry on a
	// rate-limited or server-error response. No backoff curve.
	RetryDelay time.Duration

	// HTTPTimeout is the timeout for non-streaming outgoing HTTP requests
	// (seed extraction). Streaming requests rely on context cancellation.
	HTTPTimeout time.Duration

	// StubStream switches the stream client to canned output for offline
	// development.
	StubStream bool

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	cfg := Config{
		Port:        envOr("PORT", "8080"),
		DBPath:      envOr("DB_PATH", "hookmill.db"),
		APIKey:      os.Getenv("OPENROUTER_API_KEY"),
		BaseURL:     envOr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		RetryDelay:  envDuration("RETRY_DELAY", time.Second),
		HTTPTimeout: envDuration("HTTP_TIMEOUT", 30*time.Second),
		StubStream:  envBool("LLM_STUB", false),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
	}
	// Stub mode is keyless development; a placeholder credential keeps
	// generation from tripping the missing-key guard.
	if cfg.StubStream && cfg.APIKey == "" {
		cfg.APIKey = "stub"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
