package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all client configuration.
type Config struct {
	// ServerURL is the websocket endpoint of the game server.
	ServerURL string `validate:"required,url"`

	// JoinTimeout bounds how long a session join waits for the server
	// acknowledgment. Zero disables the timeout.
	JoinTimeout time.Duration `validate:"min=0"`

	// MaxReconnectAttempts caps automatic reconnection before the
	// connection enters the error state.
	MaxReconnectAttempts int `validate:"min=1"`

	// ReconnectBaseDelay is the first reconnect delay; subsequent delays
	// grow exponentially up to ReconnectMaxDelay.
	ReconnectBaseDelay time.Duration `validate:"min=0"`
	ReconnectMaxDelay  time.Duration `validate:"min=0"`

	// TranscriptPath is where the CLI appends the narrative transcript.
	// Empty disables transcript writing.
	TranscriptPath string
}

// New loads configuration from environment variables. A .env file is
// honored when present.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		ServerURL:            os.Getenv("REALMSYNC_SERVER_URL"),
		JoinTimeout:          envDuration("REALMSYNC_JOIN_TIMEOUT", 10*time.Second),
		MaxReconnectAttempts: envInt("REALMSYNC_MAX_RECONNECT_ATTEMPTS", 5),
		ReconnectBaseDelay:   envDuration("REALMSYNC_RECONNECT_BASE_DELAY", 100*time.Millisecond),
		ReconnectMaxDelay:    envDuration("REALMSYNC_RECONNECT_MAX_DELAY", 30*time.Second),
		TranscriptPath:       os.Getenv("REALMSYNC_TRANSCRIPT_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Ignoring malformed duration in environment", "key", key, "value", raw, "error", err)
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring malformed integer in environment", "key", key, "value", raw, "error", err)
		return fallback
	}
	return n
}
