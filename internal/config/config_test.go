package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DEVSERVER_ADDR", "DATABASE_URL", "JWT_SECRET", "JWT_TTL", "RESET_TOKEN_TTL", "DEVSERVER_EXPOSE_RESET_TOKENS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "file::memory:?cache=shared", cfg.Database.URL)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Hour, cfg.Auth.ResetTokenTTL)
	assert.True(t, cfg.Auth.ExposeResetTokens)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DEVSERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("DATABASE_URL", "captionly.sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("DEVSERVER_EXPOSE_RESET_TOKENS", "false")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "captionly.sqlite", cfg.Database.URL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.ExposeResetTokens)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_TTL", "forever")
	t.Setenv("DEVSERVER_EXPOSE_RESET_TOKENS", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.ExposeResetTokens)
}
