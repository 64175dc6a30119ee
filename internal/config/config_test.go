package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.TickInterval)
	assert.InDelta(t, 0.05, cfg.SimDT, 1e-12)
	assert.InDelta(t, 1e-9, cfg.Tolerance, 1e-15)
	assert.Equal(t, 4, cfg.TerminalPoolSize)
	assert.Equal(t, "@every 1m", cfg.SnapshotSchedule)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("SIM_DT", "0.01")
	t.Setenv("TERMINAL_POOL_SIZE", "8")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.InDelta(t, 0.01, cfg.SimDT, 1e-12)
	assert.Equal(t, 8, cfg.TerminalPoolSize)
	assert.True(t, cfg.DevMode)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("SIM_DT", "banana")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)
	assert.InDelta(t, 0.05, cfg.SimDT, 1e-12)
}

func TestValidateRejectsBadEngineParameters(t *testing.T) {
	t.Setenv("TICK_INTERVAL_MS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsTightAuditTolerance(t *testing.T) {
	t.Setenv("AUDIT_TOLERANCE", "1e-12")
	_, err := Load()
	assert.Error(t, err)
}
