package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONFIG_FILE", "TELEGRAM_TOKEN", "DATABASE_URL", "DIGEST_TIME", "DIGEST_INTERVAL_HOURS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	writeConfigFile(t, `
telegram_token: file-token
database_url: data/tracker.db
digest_time: "09:30"
log_level: debug
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.TelegramToken)
	assert.Equal(t, "data/tracker.db", cfg.DatabaseURL)
	assert.Equal(t, "09:30", cfg.DigestTime)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Zero(t, cfg.DigestInterval) // daily time set, no interval fallback
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeConfigFile(t, `
telegram_token: file-token
digest_interval_hours: 3
`)
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("DIGEST_INTERVAL_HOURS", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.TelegramToken)
	assert.Equal(t, 8*time.Hour, cfg.DigestInterval)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "chore_tracker.db", cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 6*time.Hour, cfg.DigestInterval)
}

func TestLoad_RequiresToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsBadDigestTime(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DIGEST_TIME", "quarter past nine")

	_, err := Load()
	assert.Error(t, err)
}
