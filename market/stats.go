package market

import (
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrNotEnoughPoints = errors.New("not enough points")

// Summary describes a chart series for display.
type Summary struct {
	Count         int     `json:"count"`
	First         float64 `json:"first"`
	Last          float64 `json:"last"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"stdDev"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

func Prices(pts []PricePoint) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Price
	}
	return out
}

func Summarize(pts []PricePoint) (Summary, error) {
	if len(pts) == 0 {
		return Summary{}, fmt.Errorf("summarize: %w", ErrNotEnoughPoints)
	}
	xs := Prices(pts)

	s := Summary{
		Count: len(xs),
		First: xs[0],
		Last:  xs[len(xs)-1],
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
	}
	if len(xs) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	} else {
		s.Mean = xs[0]
	}
	s.Change = Round2(s.Last - s.First)
	if s.First > 0 {
		s.ChangePercent = (s.Last - s.First) / s.First * 100
	}
	return s, nil
}

// MovingAverage returns the simple moving average of the series. The
// first period-1 entries are zero, as talib leaves them.
func MovingAverage(pts []PricePoint, period int) ([]float64, error) {
	if period < 2 {
		return nil, fmt.Errorf("moving average: period must be at least 2, got %d", period)
	}
	if len(pts) < period {
		return nil, fmt.Errorf("moving average: %w: have %d, period %d", ErrNotEnoughPoints, len(pts), period)
	}
	return talib.Sma(Prices(pts), period), nil
}
