package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordSettlement(s SettlementRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO settlements
		(position_id, transaction_id, side, size_grams, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PositionID, s.TransactionID, string(s.Side), s.SizeGrams, s.EntryPrice,
		s.ExitPrice, s.OpenTime, s.CloseTime, s.RealizedPL, s.Reason,
	)
	return err
}

func (j *SQLite) RecordTransaction(t TransactionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO transactions
		(id, kind, wallet, amount_grams, amount_usd, time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Kind), string(t.Wallet), t.AmountGrams, t.AmountUSD, t.Time, string(t.Status),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
