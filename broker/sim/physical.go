package sim

import (
	"fmt"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/market"
)

// PhysicalCommissionRate is the flat commission on bullion orders.
const PhysicalCommissionRate = 0.015

// PhysicalQuote prices a bullion order for display.
type PhysicalQuote struct {
	Side       broker.Side `json:"side"`
	Grams      float64     `json:"grams"`
	Subtotal   float64     `json:"subtotal"`
	Commission float64     `json:"commission"`
	Total      float64     `json:"total"`
}

// QuotePhysical prices grams of bullion at pricePerGram. Buyers pay the
// commission on top; sellers have it taken off the proceeds.
func QuotePhysical(side broker.Side, grams, pricePerGram float64) (PhysicalQuote, error) {
	if side != broker.Buy && side != broker.Sell {
		return PhysicalQuote{}, fmt.Errorf("quote physical: %w: %q", broker.ErrInvalidSide, side)
	}
	if !market.IsFinite(grams) || grams <= 0 {
		return PhysicalQuote{}, fmt.Errorf("quote physical: %w: %v grams", broker.ErrInvalidAmount, grams)
	}
	if !market.IsFinite(pricePerGram) || pricePerGram <= 0 {
		return PhysicalQuote{}, fmt.Errorf("quote physical: %w: price %v", broker.ErrInvalidAmount, pricePerGram)
	}

	q := PhysicalQuote{Side: side, Grams: grams}
	q.Subtotal = grams * pricePerGram
	q.Commission = q.Subtotal * PhysicalCommissionRate
	if side == broker.Buy {
		q.Total = q.Subtotal + q.Commission
	} else {
		q.Total = q.Subtotal - q.Commission
	}
	return q, nil
}
