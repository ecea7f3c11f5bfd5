package sim

import "github.com/rustyeddy/goldsim/broker"

// UnrealizedPL values a position at the given per-gram price. Buy profits
// when the price rises, Sell when it falls. It is recomputed on every call
// because the price moves every tick.
func UnrealizedPL(p broker.Position, currentPricePerGram float64) float64 {
	if p.Side == broker.Sell {
		return (p.EntryPricePerGram - currentPricePerGram) * p.SizeGrams
	}
	return (currentPricePerGram - p.EntryPricePerGram) * p.SizeGrams
}
