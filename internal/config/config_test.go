package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv("REALMSYNC_SERVER_URL", "ws://localhost:4000/game")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:4000/game", cfg.ServerURL)
	assert.Equal(t, 10*time.Second, cfg.JoinTimeout)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.ReconnectBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMaxDelay)
	assert.Empty(t, cfg.TranscriptPath)
}

func TestNewReadsOverrides(t *testing.T) {
	t.Setenv("REALMSYNC_SERVER_URL", "wss://play.example.com/sync")
	t.Setenv("REALMSYNC_JOIN_TIMEOUT", "3s")
	t.Setenv("REALMSYNC_MAX_RECONNECT_ATTEMPTS", "8")
	t.Setenv("REALMSYNC_RECONNECT_BASE_DELAY", "250ms")
	t.Setenv("REALMSYNC_TRANSCRIPT_PATH", "/tmp/session.log")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.JoinTimeout)
	assert.Equal(t, 8, cfg.MaxReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectBaseDelay)
	assert.Equal(t, "/tmp/session.log", cfg.TranscriptPath)
}

func TestNewRequiresServerURL(t *testing.T) {
	t.Setenv("REALMSYNC_SERVER_URL", "")

	_, err := New()
	assert.Error(t, err)
}

func TestMalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("REALMSYNC_SERVER_URL", "ws://localhost:4000/game")
	t.Setenv("REALMSYNC_JOIN_TIMEOUT", "soon")
	t.Setenv("REALMSYNC_MAX_RECONNECT_ATTEMPTS", "many")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.JoinTimeout)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
}
