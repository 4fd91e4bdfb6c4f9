package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SYNC_ENDPOINT", "http://store.internal/api/sync")
	t.Setenv("SYNC_TOKEN", "internal-token")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.SyncDebounce)
	assert.Equal(t, 30, cfg.Guard.MaxRequests)
	assert.Equal(t, 10*time.Second, cfg.Guard.Window)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9999")
	t.Setenv("SYNC_DEBOUNCE", "500ms")
	t.Setenv("GUARD_MAX_REQUESTS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncDebounce)
	assert.Equal(t, 5, cfg.Guard.MaxRequests)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_RejectsRelativeSyncEndpoint(t *testing.T) {
	setRequired(t)
	t.Setenv("SYNC_ENDPOINT", "/api/sync")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_ENDPOINT")
}
