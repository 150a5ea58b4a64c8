package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "SWEEP_INTERVAL", "XP_FIRST", "CORS_ORIGINS", "LOG_LEVEL", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, [3]int{500, 300, 150}, cfg.PlacementXP)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "0")
	t.Setenv("XP_SECOND", "42")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Duration(0), cfg.SweepInterval)
	assert.Equal(t, 42, cfg.PlacementXP[1])
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("FINALIZE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.DBMaxOpen)
	assert.Equal(t, 30*time.Second, cfg.FinalizeTimeout)
}
