package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const settlementColumns = `position_id, transaction_id, side, size_grams, entry_price, exit_price, open_time, close_time, realized_pl, reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (SettlementRecord, error) {
	var rec SettlementRecord
	err := row.Scan(
		&rec.PositionID,
		&rec.TransactionID,
		&rec.Side,
		&rec.SizeGrams,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	return rec, err
}

// GetSettlement returns the settlement for a closed position.
func (j *SQLite) GetSettlement(positionID string) (SettlementRecord, error) {
	row := j.db.QueryRow(`SELECT `+settlementColumns+` FROM settlements WHERE position_id = ?`, positionID)

	rec, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SettlementRecord{}, fmt.Errorf("settlement %q not found", positionID)
		}
		return SettlementRecord{}, err
	}
	return rec, nil
}

// ListSettlementsClosedBetween returns settlements whose close_time is within [start, end).
func (j *SQLite) ListSettlementsClosedBetween(start, end time.Time) ([]SettlementRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+settlementColumns+`
		FROM settlements
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SettlementRecord
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransactions returns up to limit transactions, newest first. A
// limit of zero or less returns all of them.
func (j *SQLite) ListTransactions(limit int) ([]TransactionRecord, error) {
	q := `SELECT id, kind, wallet, amount_grams, amount_usd, time, status
		FROM transactions
		ORDER BY time DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		var rec TransactionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.Wallet,
			&rec.AmountGrams,
			&rec.AmountUSD,
			&rec.Time,
			&rec.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	/* Could add here:
	NetPL = sum(Deposit) - sum(Withdrawal) over settlements only
	*/
	return out, nil
}
