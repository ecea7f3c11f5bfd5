package market

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownHorizon = errors.New("unknown horizon")

// Horizon names one of the rolling chart windows.
type Horizon string

const (
	Horizon5M Horizon = "5M"
	Horizon1H Horizon = "1H"
	Horizon4H Horizon = "4H"
)

// Horizons lists every horizon, shortest first.
var Horizons = []Horizon{Horizon5M, Horizon1H, Horizon4H}

func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(strings.ToUpper(strings.TrimSpace(s)))
	switch h {
	case Horizon5M, Horizon1H, Horizon4H:
		return h, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHorizon, s)
}

// Window is a fixed-capacity ring buffer of price points. Once full,
// every Append evicts the oldest point.
type Window struct {
	buf   []PricePoint
	start int
	n     int
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]PricePoint, capacity)}
}

func (w *Window) Len() int { return w.n }
func (w *Window) Cap() int { return len(w.buf) }

// Append adds p as the newest point and reports whether the oldest point
// was evicted to make room.
func (w *Window) Append(p PricePoint) bool {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = p
		w.n++
		return false
	}
	w.buf[w.start] = p
	w.start = (w.start + 1) % len(w.buf)
	return true
}

// Points returns a chronological copy of the window.
func (w *Window) Points() []PricePoint {
	out := make([]PricePoint, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

func (w *Window) Last() (PricePoint, bool) {
	if w.n == 0 {
		return PricePoint{}, false
	}
	return w.buf[(w.start+w.n-1)%len(w.buf)], true
}

// Seed generates count points of a simple random walk around basePrice.
// The walk starts below the base by a random fraction of count/2 steps so
// the series tends to end near it.
func Seed(rng Source, basePrice, volatility float64, count int, prefix string) []PricePoint {
	if count <= 0 {
		return nil
	}
	out := make([]PricePoint, 0, count)
	price := basePrice - float64(count)/2*(volatility*rng.Float64())
	for i := 0; i < count; i++ {
		price += (rng.Float64() - 0.48) * volatility
		out = append(out, PricePoint{
			Label: fmt.Sprintf("%s-%d", prefix, count-i),
			Price: Round2(price),
		})
	}
	return out
}

// WindowSpec configures one horizon.
type WindowSpec struct {
	Capacity   int
	BaseOffset float64 // added to the session's starting price when seeding
	Volatility float64
	Prefix     string
}

func DefaultWindowSpecs() map[Horizon]WindowSpec {
	return map[Horizon]WindowSpec{
		Horizon5M: {Capacity: 60, BaseOffset: 0, Volatility: 0.5, Prefix: "T"},
		Horizon1H: {Capacity: 72, BaseOffset: -5, Volatility: 1.5, Prefix: "H"},
		Horizon4H: {Capacity: 84, BaseOffset: -20, Volatility: 4, Prefix: "D"},
	}
}

// ChartStore holds one window per horizon. Only the live horizon is fed
// by the ticker, but Append accepts any horizon. ChartStore does no
// locking of its own.
type ChartStore struct {
	specs   map[Horizon]WindowSpec
	windows map[Horizon]*Window
	live    Horizon
	counter int
}

func NewChartStore(specs map[Horizon]WindowSpec) *ChartStore {
	if specs == nil {
		specs = DefaultWindowSpecs()
	}
	c := &ChartStore{
		specs:   make(map[Horizon]WindowSpec, len(specs)),
		windows: make(map[Horizon]*Window, len(specs)),
		live:    Horizon5M,
	}
	for h, s := range specs {
		c.specs[h] = s
		c.windows[h] = NewWindow(s.Capacity)
	}
	return c
}

// SeedAll fills every window to capacity around basePrice.
func (c *ChartStore) SeedAll(rng Source, basePrice float64) {
	for _, h := range Horizons {
		if _, ok := c.windows[h]; ok {
			_ = c.Seed(h, rng, basePrice)
		}
	}
}

// Seed replaces the contents of horizon h with a fresh synthetic series.
func (c *ChartStore) Seed(h Horizon, rng Source, basePrice float64) error {
	spec, ok := c.specs[h]
	if !ok {
		return fmt.Errorf("seed: %w: %q", ErrUnknownHorizon, h)
	}
	w := NewWindow(spec.Capacity)
	for _, p := range Seed(rng, basePrice+spec.BaseOffset, spec.Volatility, spec.Capacity, spec.Prefix) {
		w.Append(p)
	}
	c.windows[h] = w
	if h == c.live {
		c.counter = 0
	}
	return nil
}

// NextLivePoint labels price as the next live sample ("T+1", "T+2", ...).
func (c *ChartStore) NextLivePoint(price float64) PricePoint {
	c.counter++
	return PricePoint{Label: fmt.Sprintf("T+%d", c.counter), Price: price}
}

// AppendLive appends p to the live horizon.
func (c *ChartStore) AppendLive(p PricePoint) {
	_ = c.Append(c.live, p)
}

func (c *ChartStore) Append(h Horizon, p PricePoint) error {
	w, ok := c.windows[h]
	if !ok {
		return fmt.Errorf("append: %w: %q", ErrUnknownHorizon, h)
	}
	w.Append(p)
	return nil
}

// Select returns a chronological copy of the series for h.
func (c *ChartStore) Select(h Horizon) ([]PricePoint, error) {
	w, ok := c.windows[h]
	if !ok {
		return nil, fmt.Errorf("select: %w: %q", ErrUnknownHorizon, h)
	}
	return w.Points(), nil
}
