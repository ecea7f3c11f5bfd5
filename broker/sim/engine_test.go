package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/journal"
)

type recorder struct {
	mu          sync.Mutex
	settlements []journal.SettlementRecord
	txs         []journal.TransactionRecord
	fail        bool
}

func (r *recorder) RecordSettlement(s journal.SettlementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.settlements = append(r.settlements, s)
	return nil
}

func (r *recorder) RecordTransaction(tx journal.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.txs = append(r.txs, tx)
	return nil
}

func (r *recorder) Close() error { return nil }

func newTestEngine(t *testing.T, trading float64) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	e := NewEngine(broker.Account{ID: "test", PhysicalGrams: 50.1234, PhysicalUSD: 11528.38, TradingUSD: trading}, rec)
	e.SetClock(func() time.Time { return time.Date(2023, 10, 27, 15, 4, 0, 0, time.UTC) })
	return e, rec
}

func tradingBalance(e *Engine) float64 {
	for _, w := range e.Wallets() {
		if w.Kind == broker.Trading {
			return w.BalanceUSD
		}
	}
	return 0
}

func TestEngineWalletsOrder(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, 25000)
	ws := e.Wallets()
	require.Len(t, ws, 2)
	assert.Equal(t, broker.Physical, ws[0].Kind)
	assert.InDelta(t, 50.1234, ws[0].BalanceGrams, 1e-9)
	assert.Equal(t, broker.Trading, ws[1].Kind)
	assert.InDelta(t, 25000, ws[1].BalanceUSD, 1e-9)
}

func TestEngineCloseProfitCreditsDeposit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, rec := newTestEngine(t, 1000)
	p, err := e.OpenPosition(ctx, broker.Buy, 10, 80)
	require.NoError(t, err)

	tx, err := e.ClosePosition(ctx, p.ID, 85)
	require.NoError(t, err)

	assert.Equal(t, broker.TxDeposit, tx.Kind)
	assert.Equal(t, broker.Trading, tx.Wallet)
	assert.Equal(t, broker.Completed, tx.Status)
	assert.InDelta(t, 50, tx.AmountUSD, 1e-9)
	assert.Equal(t, "10/27/23, 3:04 PM", tx.Timestamp)
	assert.InDelta(t, 1050, tradingBalance(e), 1e-9)
	assert.Empty(t, e.Positions())

	history := e.Transactions()
	require.NotEmpty(t, history)
	assert.Equal(t, tx.ID, history[0].ID)

	require.Len(t, rec.settlements, 1)
	assert.Equal(t, p.ID, rec.settlements[0].PositionID)
	assert.Equal(t, tx.ID, rec.settlements[0].TransactionID)
	assert.InDelta(t, 50, rec.settlements[0].RealizedPL, 1e-9)
	require.Len(t, rec.txs, 1)
}

func TestEngineCloseLossRecordsWithdrawal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1000)
	p, err := e.OpenPosition(ctx, broker.Sell, 5, 80)
	require.NoError(t, err)

	tx, err := e.ClosePosition(ctx, p.ID, 82)
	require.NoError(t, err)
	assert.Equal(t, broker.TxWithdrawal, tx.Kind)
	assert.InDelta(t, 10, tx.AmountUSD, 1e-9)
	assert.InDelta(t, 990, tradingBalance(e), 1e-9)
}

func TestEngineBreakEvenIsDeposit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 100)
	p, _ := e.OpenPosition(ctx, broker.Buy, 1, 80)
	tx, err := e.ClosePosition(ctx, p.ID, 80)
	require.NoError(t, err)
	assert.Equal(t, broker.TxDeposit, tx.Kind)
	assert.Zero(t, tx.AmountUSD)
}

func TestEngineDoubleCloseSettlesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1000)
	p, _ := e.OpenPosition(ctx, broker.Buy, 10, 80)

	_, err := e.ClosePosition(ctx, p.ID, 85)
	require.NoError(t, err)
	_, err = e.ClosePosition(ctx, p.ID, 85)
	assert.ErrorIs(t, err, broker.ErrNotFound)

	assert.InDelta(t, 1050, tradingBalance(e), 1e-9)
	assert.Len(t, e.Transactions(), 1)
}

func TestEngineConcurrentCloseSettlesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1000)
	p, _ := e.OpenPosition(ctx, broker.Buy, 10, 80)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ClosePosition(ctx, p.ID, 85); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.InDelta(t, 1050, tradingBalance(e), 1e-9)
	assert.Len(t, e.Transactions(), 1)
}

func TestEngineLosingCloseCanGoNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 10)
	p, _ := e.OpenPosition(ctx, broker.Buy, 10, 80)
	_, err := e.ClosePosition(ctx, p.ID, 70)
	require.NoError(t, err)
	assert.InDelta(t, -90, tradingBalance(e), 1e-9)
}

func TestEngineCloseRejectsBadPrice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 10)
	p, _ := e.OpenPosition(ctx, broker.Buy, 1, 80)
	_, err := e.ClosePosition(ctx, p.ID, 0)
	assert.ErrorIs(t, err, broker.ErrInvalidAmount)
	assert.Len(t, e.Positions(), 1)
}

func TestEngineCloseAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, rec := newTestEngine(t, 1000)
	_, _ = e.OpenPosition(ctx, broker.Buy, 10, 80)
	_, _ = e.OpenPosition(ctx, broker.Sell, 5, 80)

	txs, err := e.CloseAll(ctx, 78)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, broker.TxWithdrawal, txs[0].Kind)
	assert.InDelta(t, 20, txs[0].AmountUSD, 1e-9)
	assert.Equal(t, broker.TxDeposit, txs[1].Kind)
	assert.InDelta(t, 10, txs[1].AmountUSD, 1e-9)
	assert.InDelta(t, 990, tradingBalance(e), 1e-9)
	assert.Empty(t, e.Positions())
	assert.Len(t, rec.settlements, 2)
	assert.Equal(t, "CloseAll", rec.settlements[0].Reason)
}

func TestEngineEquity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1000)
	_, _ = e.OpenPosition(ctx, broker.Buy, 10, 80)
	_, _ = e.OpenPosition(ctx, broker.Sell, 5, 80)

	// +50 - 25
	assert.InDelta(t, 1025, e.Equity(85), 1e-9)

	pl, err := e.UnrealizedPL(e.Positions()[0].ID, 85)
	require.NoError(t, err)
	assert.InDelta(t, 50, pl, 1e-9)

	_, err = e.UnrealizedPL("pos_missing", 85)
	assert.ErrorIs(t, err, broker.ErrNotFound)
}

func TestEngineDepositWithdraw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 100)

	tx, err := e.Deposit(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, broker.TxDeposit, tx.Kind)
	assert.InDelta(t, 150, tradingBalance(e), 1e-9)

	_, err = e.Withdraw(ctx, 200)
	assert.ErrorIs(t, err, broker.ErrInsufficientBalance)
	assert.InDelta(t, 150, tradingBalance(e), 1e-9)

	tx, err = e.Withdraw(ctx, 150)
	require.NoError(t, err)
	assert.Equal(t, broker.TxWithdrawal, tx.Kind)
	assert.Zero(t, tradingBalance(e))

	for _, bad := range []float64{0, -1} {
		_, err = e.Deposit(ctx, bad)
		assert.ErrorIs(t, err, broker.ErrInvalidAmount)
		_, err = e.Withdraw(ctx, bad)
		assert.ErrorIs(t, err, broker.ErrInvalidAmount)
	}
	assert.Len(t, e.Transactions(), 2)
}

func TestEngineHistoryNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seed := []broker.Transaction{{ID: "tx_seed", Kind: broker.TxDeposit, Wallet: broker.Trading, AmountUSD: 1}}
	e := NewEngine(broker.Account{TradingUSD: 100, History: seed}, nil)

	d, _ := e.Deposit(ctx, 5)
	w, _ := e.Withdraw(ctx, 3)

	got := e.Transactions()
	require.Len(t, got, 3)
	assert.Equal(t, w.ID, got[0].ID)
	assert.Equal(t, d.ID, got[1].ID)
	assert.Equal(t, "tx_seed", got[2].ID)
}

func TestEngineJournalFailureDoesNotUndoSettlement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, rec := newTestEngine(t, 1000)
	rec.fail = true

	p, _ := e.OpenPosition(ctx, broker.Buy, 10, 80)
	_, err := e.ClosePosition(ctx, p.ID, 85)
	require.NoError(t, err)
	assert.InDelta(t, 1050, tradingBalance(e), 1e-9)
}

func TestEngineCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := newTestEngine(t, 1000)
	_, err := e.OpenPosition(ctx, broker.Buy, 1, 80)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.Deposit(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineOverflowLeavesBalanceFinite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, rec := newTestEngine(t, 1000)
	buy, err := e.OpenPosition(ctx, broker.Buy, 1e306, 100)
	require.NoError(t, err)
	sell, err := e.OpenPosition(ctx, broker.Sell, 1e306, 100)
	require.NoError(t, err)

	// 1e306 * (1e5 - 100) overflows in both directions.
	_, err = e.ClosePosition(ctx, buy.ID, 1e5)
	assert.ErrorIs(t, err, broker.ErrInvalidAmount)
	_, err = e.ClosePosition(ctx, sell.ID, 1e5)
	assert.ErrorIs(t, err, broker.ErrInvalidAmount)

	_, err = e.CloseAll(ctx, 1e5)
	assert.ErrorIs(t, err, broker.ErrInvalidAmount)

	assert.InDelta(t, 1000, tradingBalance(e), 1e-9)
	assert.Len(t, e.Positions(), 2)
	assert.Empty(t, e.Transactions())
	assert.Empty(t, rec.settlements)

	// Both still close at a price they can absorb.
	txs, err := e.CloseAll(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.InDelta(t, 1000, tradingBalance(e), 1e-9)
}

func TestEngineCloseAllIsAllOrNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1000)
	small, _ := e.OpenPosition(ctx, broker.Buy, 10, 80)
	_, _ = e.OpenPosition(ctx, broker.Buy, 1e306, 100)

	_, err := e.CloseAll(ctx, 1e5)
	assert.ErrorIs(t, err, broker.ErrInvalidAmount)
	require.Len(t, e.Positions(), 2)
	assert.Equal(t, small.ID, e.Positions()[0].ID)
	assert.InDelta(t, 1000, tradingBalance(e), 1e-9)
}

func TestEngineDepositOverflow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1.7e308)
	_, err := e.Deposit(ctx, 1.7e308)
	assert.ErrorIs(t, err, broker.ErrInvalidAmount)
	assert.InDelta(t, 1.7e308, tradingBalance(e), 1e295)
	assert.Empty(t, e.Transactions())
}

func TestEngineSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1000)
	buy, _ := e.OpenPosition(ctx, broker.Buy, 10, 80)
	sell, _ := e.OpenPosition(ctx, broker.Sell, 5, 80)
	_, _ = e.Deposit(ctx, 100)

	snap := e.Snapshot(85)
	assert.InDelta(t, 1125, snap.Equity, 1e-9)
	require.Len(t, snap.Wallets, 2)
	assert.InDelta(t, 1100, snap.Wallets[1].BalanceUSD, 1e-9)
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, buy.ID, snap.Positions[0].ID)
	assert.InDelta(t, 50, snap.Positions[0].UnrealizedPL, 1e-9)
	assert.Equal(t, sell.ID, snap.Positions[1].ID)
	assert.InDelta(t, -25, snap.Positions[1].UnrealizedPL, 1e-9)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, broker.TxDeposit, snap.Transactions[0].Kind)
}

func TestEngineSnapshotConsistentWithClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e, _ := newTestEngine(t, 1000)
	for i := 0; i < 50; i++ {
		_, _ = e.OpenPosition(ctx, broker.Buy, 1, 80)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.CloseAll(ctx, 81)
	}()

	// Each close moves one position's P/L into the balance, so equity
	// must stay put in every snapshot.
	for i := 0; i < 100; i++ {
		snap := e.Snapshot(81)
		assert.InDelta(t, 1050, snap.Equity, 1e-9)
		assert.Equal(t, 50, len(snap.Positions)+len(snap.Transactions))
	}
	<-done
}
