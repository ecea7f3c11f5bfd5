package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/journal"
	"github.com/rustyeddy/goldsim/market"
	"github.com/rustyeddy/goldsim/pkg/id"
)

// TimestampLayout is how transaction timestamps are shown, e.g.
// "10/27/23, 3:04 PM".
const TimestampLayout = "1/2/06, 3:04 PM"

// Engine owns the wallets, the open positions and the transaction
// history. Every mutation happens under one mutex so no caller can see a
// position removed without its wallet credit, or the reverse.
type Engine struct {
	mu       sync.Mutex
	acctID   string
	physical broker.Wallet
	trading  broker.Wallet
	ledger   *Ledger
	history  []broker.Transaction // oldest first
	journal  journal.Journal
	now      func() time.Time
	log      zerolog.Logger
}

func NewEngine(acct broker.Account, j journal.Journal) *Engine {
	if j == nil {
		j = journal.Nop{}
	}
	history := make([]broker.Transaction, len(acct.History))
	copy(history, acct.History)

	return &Engine{
		acctID:   acct.ID,
		physical: broker.Wallet{Kind: broker.Physical, BalanceGrams: acct.PhysicalGrams, BalanceUSD: acct.PhysicalUSD},
		trading:  broker.Wallet{Kind: broker.Trading, BalanceUSD: acct.TradingUSD},
		ledger:   NewLedger(),
		history:  history,
		journal:  j,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
}

func (e *Engine) SetLogger(log zerolog.Logger) {
	e.log = log.With().Str("component", "settlement").Str("account", e.acctID).Logger()
}

// SetClock replaces the wall clock used for timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Wallets returns the Physical and Trading wallets, in that order.
func (e *Engine) Wallets() []broker.Wallet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return []broker.Wallet{e.physical, e.trading}
}

// Transactions returns the history newest first.
func (e *Engine) Transactions() []broker.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.Transaction, len(e.history))
	for i, tx := range e.history {
		out[len(e.history)-1-i] = tx
	}
	return out
}

func (e *Engine) Positions() []broker.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.List()
}

// UnrealizedPL values one open position at the given per-gram price.
func (e *Engine) UnrealizedPL(positionID string, pricePerGram float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.ledger.Get(positionID)
	if !ok {
		return 0, fmt.Errorf("unrealized pl: %w: %q", broker.ErrNotFound, positionID)
	}
	return UnrealizedPL(p, pricePerGram), nil
}

// Equity is the Trading balance plus the unrealized P/L of every open
// position at the given per-gram price.
func (e *Engine) Equity(pricePerGram float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	equity := e.trading.BalanceUSD
	for _, p := range e.ledger.List() {
		equity += UnrealizedPL(p, pricePerGram)
	}
	return equity
}

// ValuedPosition is an open position with its unrealized P/L.
type ValuedPosition struct {
	broker.Position
	UnrealizedPL float64 `json:"unrealizedPL"`
}

// Snapshot is the account as of one instant.
type Snapshot struct {
	Equity       float64
	Wallets      []broker.Wallet
	Positions    []ValuedPosition
	Transactions []broker.Transaction
}

// Snapshot values the whole account at pricePerGram under a single lock,
// so a concurrent close can never show up in one field but not another.
func (e *Engine) Snapshot(pricePerGram float64) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Equity:       e.trading.BalanceUSD,
		Wallets:      []broker.Wallet{e.physical, e.trading},
		Transactions: make([]broker.Transaction, len(e.history)),
	}
	for _, p := range e.ledger.List() {
		pl := UnrealizedPL(p, pricePerGram)
		snap.Equity += pl
		snap.Positions = append(snap.Positions, ValuedPosition{Position: p, UnrealizedPL: pl})
	}
	for i, tx := range e.history {
		snap.Transactions[len(e.history)-1-i] = tx
	}
	return snap
}

// OpenPosition opens a position filled at entryPricePerGram.
func (e *Engine) OpenPosition(ctx context.Context, side broker.Side, sizeGrams, entryPricePerGram float64) (broker.Position, error) {
	if err := ctx.Err(); err != nil {
		return broker.Position{}, fmt.Errorf("open position: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.ledger.Open(side, sizeGrams, entryPricePerGram, e.now())
	if err != nil {
		return broker.Position{}, err
	}

	e.log.Info().
		Str("position", p.ID).
		Str("side", string(p.Side)).
		Float64("grams", p.SizeGrams).
		Float64("entry", p.EntryPricePerGram).
		Msg("Position opened")
	return p, nil
}

// ClosePosition settles a position at pricePerGram: the position leaves
// the ledger, its P/L is applied to the Trading wallet with no floor, and
// one Deposit (profit or break-even) or Withdrawal (loss) is recorded.
// Closing an id that is not open fails with ErrNotFound and changes
// nothing.
func (e *Engine) ClosePosition(ctx context.Context, positionID string, pricePerGram float64) (broker.Transaction, error) {
	return e.close(ctx, positionID, pricePerGram, "ManualClose")
}

func (e *Engine) close(ctx context.Context, positionID string, pricePerGram float64, reason string) (broker.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return broker.Transaction{}, fmt.Errorf("close position: %w", err)
	}
	if !market.IsFinite(pricePerGram) || pricePerGram <= 0 {
		return broker.Transaction{}, fmt.Errorf("close position: %w: price %v", broker.ErrInvalidAmount, pricePerGram)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closeLocked(positionID, pricePerGram, reason)
}

func (e *Engine) closeLocked(positionID string, pricePerGram float64, reason string) (broker.Transaction, error) {
	p, ok := e.ledger.Get(positionID)
	if !ok {
		return broker.Transaction{}, fmt.Errorf("close position: %w: %q", broker.ErrNotFound, positionID)
	}
	pl := UnrealizedPL(p, pricePerGram)
	if err := finiteBalance(e.trading.BalanceUSD, pl); err != nil {
		return broker.Transaction{}, fmt.Errorf("close position %s: %w", p.ID, err)
	}
	if _, err := e.ledger.Remove(positionID); err != nil {
		return broker.Transaction{}, fmt.Errorf("close position: %w", err)
	}

	e.trading.BalanceUSD += pl

	kind := broker.TxDeposit
	if pl < 0 {
		kind = broker.TxWithdrawal
	}
	now := e.now()
	tx := e.appendLocked(kind, math.Abs(pl), now)

	if err := e.journal.RecordSettlement(journal.SettlementRecord{
		PositionID:    p.ID,
		TransactionID: tx.ID,
		Side:          p.Side,
		SizeGrams:     p.SizeGrams,
		EntryPrice:    p.EntryPricePerGram,
		ExitPrice:     pricePerGram,
		OpenTime:      p.OpenedAt,
		CloseTime:     now,
		RealizedPL:    pl,
		Reason:        reason,
	}); err != nil {
		e.log.Error().Err(err).Str("position", p.ID).Msg("Failed to journal settlement")
	}

	e.log.Info().
		Str("position", p.ID).
		Str("reason", reason).
		Float64("exit", pricePerGram).
		Float64("pl", pl).
		Float64("trading_balance", e.trading.BalanceUSD).
		Msg("Position closed")
	return tx, nil
}

// CloseAll settles every open position at pricePerGram, oldest first.
func (e *Engine) CloseAll(ctx context.Context, pricePerGram float64) ([]broker.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("close all: %w", err)
	}
	if !market.IsFinite(pricePerGram) || pricePerGram <= 0 {
		return nil, fmt.Errorf("close all: %w: price %v", broker.ErrInvalidAmount, pricePerGram)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Settle all or nothing.
	open := e.ledger.List()
	balance := e.trading.BalanceUSD
	for _, p := range open {
		pl := UnrealizedPL(p, pricePerGram)
		if err := finiteBalance(balance, pl); err != nil {
			return nil, fmt.Errorf("close all: position %s: %w", p.ID, err)
		}
		balance += pl
	}

	out := make([]broker.Transaction, 0, len(open))
	for _, p := range open {
		tx, err := e.closeLocked(p.ID, pricePerGram, "CloseAll")
		if err != nil {
			return out, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Deposit credits the Trading wallet.
func (e *Engine) Deposit(ctx context.Context, amountUSD float64) (broker.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return broker.Transaction{}, fmt.Errorf("deposit: %w", err)
	}
	if err := validAmount(amountUSD); err != nil {
		return broker.Transaction{}, fmt.Errorf("deposit: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := finiteBalance(e.trading.BalanceUSD, amountUSD); err != nil {
		return broker.Transaction{}, fmt.Errorf("deposit: %w", err)
	}
	e.trading.BalanceUSD += amountUSD
	tx := e.appendLocked(broker.TxDeposit, amountUSD, e.now())

	e.log.Info().Float64("amount", amountUSD).Float64("trading_balance", e.trading.BalanceUSD).Msg("Deposit")
	return tx, nil
}

// Withdraw debits the Trading wallet. Unlike a losing close, a withdrawal
// may not take the balance below zero.
func (e *Engine) Withdraw(ctx context.Context, amountUSD float64) (broker.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return broker.Transaction{}, fmt.Errorf("withdraw: %w", err)
	}
	if err := validAmount(amountUSD); err != nil {
		return broker.Transaction{}, fmt.Errorf("withdraw: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if amountUSD > e.trading.BalanceUSD {
		return broker.Transaction{}, fmt.Errorf("withdraw: %w: have %.2f, need %.2f",
			broker.ErrInsufficientBalance, e.trading.BalanceUSD, amountUSD)
	}

	e.trading.BalanceUSD -= amountUSD
	tx := e.appendLocked(broker.TxWithdrawal, amountUSD, e.now())

	e.log.Info().Float64("amount", amountUSD).Float64("trading_balance", e.trading.BalanceUSD).Msg("Withdrawal")
	return tx, nil
}

func validAmount(amount float64) error {
	if !market.IsFinite(amount) || amount <= 0 {
		return fmt.Errorf("%w: please enter a valid amount, got %v", broker.ErrInvalidAmount, amount)
	}
	return nil
}

// finiteBalance rejects a change that would leave the balance, or the
// transaction amount, infinite or NaN.
func finiteBalance(balance, delta float64) error {
	if !market.IsFinite(delta) || !market.IsFinite(balance+delta) {
		return fmt.Errorf("%w: balance %.2f cannot absorb %v", broker.ErrInvalidAmount, balance, delta)
	}
	return nil
}

// appendLocked records a completed Trading wallet transaction.
func (e *Engine) appendLocked(kind broker.TxKind, amountUSD float64, at time.Time) broker.Transaction {
	tx := broker.Transaction{
		ID:        id.New(id.TransactionPrefix),
		Kind:      kind,
		Wallet:    broker.Trading,
		AmountUSD: amountUSD,
		Timestamp: at.Format(TimestampLayout),
		Status:    broker.Completed,
	}
	e.history = append(e.history, tx)

	if err := e.journal.RecordTransaction(journal.FromTransaction(tx, at)); err != nil {
		e.log.Error().Err(err).Str("transaction", tx.ID).Msg("Failed to journal transaction")
	}
	return tx
}
