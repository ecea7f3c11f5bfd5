// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	settlements  *csv.Writer
	transactions *csv.Writer
	sf, tf       *os.File
}

func NewCSV(settlementsPath, transactionsPath string) (*CSV, error) {
	sf, err := os.Create(settlementsPath)
	if err != nil {
		return nil, err
	}
	tf, err := os.Create(transactionsPath)
	if err != nil {
		_ = sf.Close()
		return nil, err
	}

	sw := csv.NewWriter(sf)
	tw := csv.NewWriter(tf)

	if err := sw.Write([]string{"position_id", "transaction_id", "side", "size_grams", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}); err != nil {
		return nil, err
	}
	if err := tw.Write([]string{"id", "kind", "wallet", "amount_grams", "amount_usd", "time", "status"}); err != nil {
		return nil, err
	}

	sw.Flush()
	if err := sw.Error(); err != nil {
		return nil, err
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}

	return &CSV{sw, tw, sf, tf}, nil
}

func (j *CSV) RecordSettlement(s SettlementRecord) error {
	err := j.settlements.Write([]string{
		s.PositionID,
		s.TransactionID,
		string(s.Side),
		f(s.SizeGrams),
		f(s.EntryPrice),
		f(s.ExitPrice),
		s.OpenTime.Format(time.RFC3339),
		s.CloseTime.Format(time.RFC3339),
		f(s.RealizedPL),
		s.Reason,
	})
	if err != nil {
		return err
	}
	j.settlements.Flush()
	return j.settlements.Error()
}

func (j *CSV) RecordTransaction(t TransactionRecord) error {
	err := j.transactions.Write([]string{
		t.ID,
		string(t.Kind),
		string(t.Wallet),
		f(t.AmountGrams),
		f(t.AmountUSD),
		t.Time.Format(time.RFC3339),
		string(t.Status),
	})
	if err != nil {
		return err
	}
	j.transactions.Flush()
	return j.transactions.Error()
}

func (j *CSV) Close() error {
	j.settlements.Flush()
	if err := j.settlements.Error(); err != nil {
		return err
	}
	j.transactions.Flush()
	if err := j.transactions.Error(); err != nil {
		return err
	}

	if err := j.sf.Close(); err != nil {
		return err
	}
	return j.tf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
