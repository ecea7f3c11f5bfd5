// journal/journal.go
package journal

import (
	"time"

	"github.com/rustyeddy/goldsim/broker"
)

// SettlementRecord is written when a position is closed.
type SettlementRecord struct {
	PositionID    string
	TransactionID string
	Side          broker.Side
	SizeGrams     float64
	EntryPrice    float64 // per gram
	ExitPrice     float64 // per gram
	OpenTime      time.Time
	CloseTime     time.Time
	RealizedPL    float64
	Reason        string
}

// TransactionRecord mirrors a wallet history entry with a machine time.
type TransactionRecord struct {
	ID          string
	Kind        broker.TxKind
	Wallet      broker.WalletKind
	AmountGrams float64
	AmountUSD   float64
	Time        time.Time
	Status      broker.TxStatus
}

// FromTransaction builds a record from a wallet transaction stamped at t.
func FromTransaction(tx broker.Transaction, t time.Time) TransactionRecord {
	rec := TransactionRecord{
		ID:        tx.ID,
		Kind:      tx.Kind,
		Wallet:    tx.Wallet,
		AmountUSD: tx.AmountUSD,
		Time:      t,
		Status:    tx.Status,
	}
	if tx.AmountGrams != nil {
		rec.AmountGrams = *tx.AmountGrams
	}
	return rec
}

type Journal interface {
	RecordSettlement(SettlementRecord) error
	RecordTransaction(TransactionRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSettlement(SettlementRecord) error   { return nil }
func (Nop) RecordTransaction(TransactionRecord) error { return nil }
func (Nop) Close() error                              { return nil }
