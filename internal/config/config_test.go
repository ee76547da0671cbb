package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCOUNTING_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("ACCOUNTING_SYNC_INTERVAL", "")
	t.Setenv("DB_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 15*time.Minute, cfg.Accounting.SyncInterval)
	assert.False(t, cfg.Accounting.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCOUNTING_SYNC_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
}
