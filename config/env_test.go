package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverlaysVariables(t *testing.T) {
	t.Setenv("GOLDSIM_INITIAL_PRICE", "2500.5")
	t.Setenv("GOLDSIM_TICK_INTERVAL", "5s")
	t.Setenv("GOLDSIM_LOG_LEVEL", "debug")
	t.Setenv("GOLDSIM_ADDR", ":9090")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, 2500.5, cfg.Simulation.InitialPrice)
	assert.Equal(t, "5s", cfg.Simulation.TickInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	// untouched
	assert.Equal(t, 0.5, cfg.Simulation.Volatility)
	assert.Equal(t, 25000.0, cfg.Account.TradingUSD)
}

func TestApplyEnvReadsDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GOLDSIM_TRADING_USD=1234\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("GOLDSIM_TRADING_USD") })

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(path))
	assert.Equal(t, 1234.0, cfg.Account.TradingUSD)
}

func TestApplyEnvRejectsInvalidResult(t *testing.T) {
	t.Setenv("GOLDSIM_VOLATILITY", "-1")

	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv("GOLDSIM_SEED", "not-a-number")

	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
}
