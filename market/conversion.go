package market

// GramsPerTroyOunce is the fixed conversion used for every per-gram quote.
const GramsPerTroyOunce = 28.3495

// PerGram converts a spot price per troy ounce into a price per gram.
func PerGram(perOunce float64) float64 {
	return perOunce / GramsPerTroyOunce
}

// PerKg converts a spot price per troy ounce into a price per kilogram.
func PerKg(perOunce float64) float64 {
	return PerGram(perOunce) * 1000
}
