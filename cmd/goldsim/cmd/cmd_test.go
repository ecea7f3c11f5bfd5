package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/goldsim/config"
	"github.com/rustyeddy/goldsim/journal"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "goldsim version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goldsim.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "$3884.00")

	_, err = execute(t, "config", "validate", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSimulateWritesJournal(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "journal.sqlite")

	cfg := config.Default()
	cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: db}
	cfgPath := filepath.Join(dir, "goldsim.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	out, err := execute(t, "simulate", "-c", cfgPath, "--log-level", "error", "--ticks", "25", "--seed", "42", "--buy", "10", "--sell", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Starting price: $3884.00/oz")
	assert.Contains(t, out, "After 25 ticks")
	assert.Contains(t, out, "Final Results")

	j, err := journal.NewSQLite(db)
	require.NoError(t, err)
	recs, err := j.ListSettlementsClosedBetween(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.NoError(t, j.Close())

	out, err = execute(t, "journal", "settlement", recs[0].PositionID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "CloseAll")

	out, err = execute(t, "journal", "transactions", "--db", db, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Trading")

	_, err = execute(t, "journal", "day", "not-a-date", "--db", db)
	assert.Error(t, err)
}

func TestSimulateIsReproducible(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "goldsim.yaml")
	require.NoError(t, config.Default().SaveToFile(cfgPath))

	args := []string{"simulate", "-c", cfgPath, "--log-level", "error", "--ticks", "50", "--seed", "7", "--buy", "0", "--sell", "0"}
	a, err := execute(t, args...)
	require.NoError(t, err)
	b, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDayBounds(t *testing.T) {
	start, end, err := dayBounds(time.UTC, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), end)

	_, _, err = dayBounds(time.UTC, "15/01/2024")
	assert.Error(t, err)
}
