package market

import (
	"math"

	"github.com/shopspring/decimal"
)

// PricePoint is one sample on a chart. It is never mutated after creation.
type PricePoint struct {
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Neutral Direction = "neutral"
)

// DirectionOf reports the direction of a price change.
func DirectionOf(change float64) Direction {
	switch {
	case change > 0:
		return Up
	case change < 0:
		return Down
	default:
		return Neutral
	}
}

// PriceState is the generator's view of the market after a tick. Current
// is the spot price per troy ounce.
type PriceState struct {
	Current       float64   `json:"current"`
	Drift         float64   `json:"drift"`
	Direction     Direction `json:"direction"`
	ChangePercent float64   `json:"changePercent"`
}

// Round2 rounds x to cents. Non-finite input is returned unchanged so the
// caller can detect it.
func Round2(x float64) float64 {
	if !IsFinite(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
