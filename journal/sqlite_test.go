package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/goldsim/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('settlements','transactions')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["settlements"])
	assert.True(t, found["transactions"])
}

func TestSQLiteRecordSettlement(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	open := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)

	rec := SettlementRecord{
		PositionID:    "pos_A",
		TransactionID: "tx_A",
		Side:          broker.Buy,
		SizeGrams:     10,
		EntryPrice:    80,
		ExitPrice:     85,
		OpenTime:      open,
		CloseTime:     closeT,
		RealizedPL:    50,
		Reason:        "ManualClose",
	}

	require.NoError(t, j.RecordSettlement(rec))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		positionID string
		side       string
		size       float64
		openTime   time.Time
		closeTime  time.Time
		realizedPL float64
	)

	err = db.QueryRow(`
        SELECT position_id, side, size_grams, open_time, close_time, realized_pl
        FROM settlements LIMIT 1`).Scan(&positionID, &side, &size, &openTime, &closeTime, &realizedPL)
	require.NoError(t, err)

	assert.Equal(t, "pos_A", positionID)
	assert.Equal(t, "Buy", side)
	assert.InDelta(t, 10, size, 1e-9)
	assert.True(t, openTime.Equal(open))
	assert.True(t, closeTime.Equal(closeT))
	assert.InDelta(t, 50, realizedPL, 1e-9)
}

func TestSQLiteSettlementIsRecordedOnce(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	rec := SettlementRecord{PositionID: "pos_dup", TransactionID: "tx", Side: broker.Buy, Reason: "x",
		OpenTime: time.Now().UTC(), CloseTime: time.Now().UTC()}
	require.NoError(t, j.RecordSettlement(rec))
	assert.Error(t, j.RecordSettlement(rec))
}
