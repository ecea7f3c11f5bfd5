package sim

import (
	"fmt"
	"time"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/market"
	"github.com/rustyeddy/goldsim/pkg/id"
)

// Ledger holds the open positions. It does no locking; Engine guards it
// together with the wallets.
type Ledger struct {
	positions map[string]broker.Position
	order     []string
	newID     func() string
}

func NewLedger() *Ledger {
	return &Ledger{
		positions: make(map[string]broker.Position),
		newID:     func() string { return id.New(id.PositionPrefix) },
	}
}

// Open records a new position. Nothing is reserved from any wallet.
func (l *Ledger) Open(side broker.Side, sizeGrams, entryPricePerGram float64, openedAt time.Time) (broker.Position, error) {
	if side != broker.Buy && side != broker.Sell {
		return broker.Position{}, fmt.Errorf("open position: %w: %q", broker.ErrInvalidSide, side)
	}
	if !market.IsFinite(sizeGrams) || sizeGrams <= 0 {
		return broker.Position{}, fmt.Errorf("open position: %w: size %v grams", broker.ErrInvalidAmount, sizeGrams)
	}
	if !market.IsFinite(entryPricePerGram) || entryPricePerGram <= 0 {
		return broker.Position{}, fmt.Errorf("open position: %w: entry price %v", broker.ErrInvalidAmount, entryPricePerGram)
	}
	if !market.IsFinite(sizeGrams * entryPricePerGram) {
		return broker.Position{}, fmt.Errorf("open position: %w: notional of %v grams overflows", broker.ErrInvalidAmount, sizeGrams)
	}

	p := broker.Position{
		ID:                l.newID(),
		Side:              side,
		SizeGrams:         sizeGrams,
		EntryPricePerGram: entryPricePerGram,
		OpenedAt:          openedAt,
	}
	l.positions[p.ID] = p
	l.order = append(l.order, p.ID)
	return p, nil
}

func (l *Ledger) Get(positionID string) (broker.Position, bool) {
	p, ok := l.positions[positionID]
	return p, ok
}

// Remove deletes and returns the position. A second Remove of the same id
// fails with ErrNotFound.
func (l *Ledger) Remove(positionID string) (broker.Position, error) {
	p, ok := l.positions[positionID]
	if !ok {
		return broker.Position{}, fmt.Errorf("remove position: %w: %q", broker.ErrNotFound, positionID)
	}
	delete(l.positions, positionID)
	for i, pid := range l.order {
		if pid == positionID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return p, nil
}

// List returns the open positions in the order they were opened.
func (l *Ledger) List() []broker.Position {
	out := make([]broker.Position, 0, len(l.order))
	for _, pid := range l.order {
		out = append(out, l.positions[pid])
	}
	return out
}

func (l *Ledger) Len() int { return len(l.order) }
