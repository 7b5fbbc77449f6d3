package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 0, cfg.Server.DebugPort)
	assert.Equal(t, 20, cfg.Queue.SendCapacity)
	assert.Equal(t, 16*time.Millisecond, cfg.Poll.FrameInterval)
	assert.Equal(t, 2*time.Second, cfg.Poll.MessageInterval)
	assert.Equal(t, int64(1<<20), cfg.Cache.NameMaxBytes)
	assert.Equal(t, 10*time.Minute, cfg.Cache.NameTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FINCH_SERVER_LOG_LEVEL", "debug")
	t.Setenv("FINCH_QUEUE_SEND_CAPACITY", "5")
	t.Setenv("FINCH_POLL_MESSAGE_INTERVAL", "500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5, cfg.Queue.SendCapacity)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.MessageInterval)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("FINCH_SERVER_LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadRejectsNonPositiveCapacity(t *testing.T) {
	t.Setenv("FINCH_QUEUE_SEND_CAPACITY", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SendCapacity")
}
