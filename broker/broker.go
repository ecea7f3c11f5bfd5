package broker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidSide         = errors.New("invalid side")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
	ErrSessionInactive     = errors.New("session inactive")
)

// Side is the direction of a position: Buy is long, Sell is short.
type Side string

const (
	Buy  Side = "Buy"
	Sell Side = "Sell"
)

func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Buy, Sell:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

type WalletKind string

const (
	Physical WalletKind = "Physical"
	Trading  WalletKind = "Trading"
)

// Wallet is a balance held by the user. There is exactly one per kind.
type Wallet struct {
	Kind         WalletKind `json:"kind"`
	BalanceGrams float64    `json:"balanceGrams"`
	BalanceUSD   float64    `json:"balanceUSD"`
}

type TxKind string

const (
	TxBuy        TxKind = "Buy"
	TxSell       TxKind = "Sell"
	TxDeposit    TxKind = "Deposit"
	TxWithdrawal TxKind = "Withdrawal"
)

type TxStatus string

const (
	Completed TxStatus = "Completed"
	Pending   TxStatus = "Pending"
)

// Transaction is an entry in the append-only wallet history. AmountUSD is
// always a non-negative magnitude; Kind carries the sign.
type Transaction struct {
	ID          string     `json:"id"`
	Kind        TxKind     `json:"kind"`
	Wallet      WalletKind `json:"wallet"`
	AmountGrams *float64   `json:"amountGrams,omitempty"`
	AmountUSD   float64    `json:"amountUSD"`
	Timestamp   string     `json:"timestamp"`
	Status      TxStatus   `json:"status"`
}

// Account seeds the two wallets and any prior history.
type Account struct {
	ID            string
	PhysicalGrams float64
	PhysicalUSD   float64
	TradingUSD    float64
	History       []Transaction // oldest first
}

// Position is an open bet on the price direction for a fixed size.
type Position struct {
	ID                string    `json:"id"`
	Side              Side      `json:"side"`
	SizeGrams         float64   `json:"sizeGrams"`
	EntryPricePerGram float64   `json:"entryPricePerGram"`
	OpenedAt          time.Time `json:"openedAt"`
}

// Broker is what the presentation layer talks to.
type Broker interface {
	CurrentPrice() float64
	Wallets() []Wallet
	OpenPositions() []Position
	Transactions() []Transaction
	OpenPosition(ctx context.Context, side Side, sizeGrams float64) (Position, error)
	ClosePosition(ctx context.Context, positionID string) (Transaction, error)
	Deposit(ctx context.Context, amountUSD float64) (Transaction, error)
	Withdraw(ctx context.Context, amountUSD float64) (Transaction, error)
}
