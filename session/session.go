// Package session owns one user's simulator state: the price generator,
// the chart windows and the settlement engine. The price ticks only
// while the session is active.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/broker/sim"
	"github.com/rustyeddy/goldsim/journal"
	"github.com/rustyeddy/goldsim/market"
)

// DefaultTickInterval is how often the price moves while active.
const DefaultTickInterval = 2 * time.Second

// Timer runs fn repeatedly until stopped. Stop must not return while fn
// is still running, and fn must not run after Stop returns.
type Timer interface {
	Start(interval time.Duration, fn func()) error
	Stop()
}

// Clock stamps positions and transactions.
type Clock func() time.Time

type Options struct {
	Generator    market.GeneratorConfig
	Windows      map[market.Horizon]market.WindowSpec
	Account      broker.Account
	TickInterval time.Duration
	Rand         market.Source
	Clock        Clock
	Timer        Timer
	Journal      journal.Journal
	Logger       zerolog.Logger
}

// Tick is published to subscribers after every committed price move.
type Tick struct {
	Point market.PricePoint `json:"point"`
	State market.PriceState `json:"state"`
}

var _ broker.Broker = (*Session)(nil)

type Session struct {
	mu       sync.Mutex
	gen      *market.Generator
	charts   *market.ChartStore
	engine   *sim.Engine
	timer    Timer
	interval time.Duration
	active   bool
	ticks    int

	subMu  sync.Mutex
	subs   map[int]chan Tick
	nextID int

	log zerolog.Logger
}

// New builds an inactive session and seeds every chart window around
// the initial price.
func New(opts Options) (*Session, error) {
	if opts.Rand == nil {
		return nil, fmt.Errorf("new session: nil random source")
	}
	if opts.Timer == nil {
		return nil, fmt.Errorf("new session: nil timer")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	gen, err := market.NewGenerator(opts.Generator, opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	gen.SetLogger(opts.Logger)

	charts := market.NewChartStore(opts.Windows)
	charts.SeedAll(opts.Rand, gen.Current())

	engine := sim.NewEngine(opts.Account, opts.Journal)
	engine.SetLogger(opts.Logger)
	engine.SetClock(opts.Clock)

	return &Session{
		gen:      gen,
		charts:   charts,
		engine:   engine,
		timer:    opts.Timer,
		interval: opts.TickInterval,
		subs:     make(map[int]chan Tick),
		log:      opts.Logger.With().Str("component", "session").Logger(),
	}, nil
}

// Activate starts the price timer. The charts and the live label
// counter carry over from any earlier activation. Activating an active
// session is a no-op.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil
	}
	// The callback blocks on s.mu until active is set.
	if err := s.timer.Start(s.interval, s.onTimer); err != nil {
		return fmt.Errorf("activate: start timer: %w", err)
	}
	s.active = true
	s.ticks = 0

	s.log.Info().Dur("interval", s.interval).Msg("Session activated")
	return nil
}

// Deactivate stops the price timer and waits for an in-flight tick to
// finish. No tick runs after it returns.
func (s *Session) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	ticks := s.ticks
	s.mu.Unlock()

	// The timer callback takes s.mu, so the lock must be released before
	// waiting on it.
	s.timer.Stop()

	s.log.Info().Int("ticks", ticks).Msg("Session deactivated")
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) onTimer() {
	if _, err := s.Tick(); err != nil && !isInactive(err) {
		s.log.Error().Err(err).Msg("Tick failed")
	}
}

// Tick advances the price one step and appends it to the live chart. A
// generation fault leaves the price and chart untouched.
func (s *Session) Tick() (market.PriceState, error) {
	s.mu.Lock()

	if !s.active {
		s.mu.Unlock()
		return market.PriceState{}, fmt.Errorf("tick: %w", broker.ErrSessionInactive)
	}

	st, err := s.gen.Tick()
	if err != nil {
		s.mu.Unlock()
		return st, fmt.Errorf("tick: %w", err)
	}
	p := s.charts.NextLivePoint(st.Current)
	s.charts.AppendLive(p)
	s.ticks++
	s.mu.Unlock()

	s.log.Debug().
		Str("label", p.Label).
		Float64("price", st.Current).
		Str("direction", string(st.Direction)).
		Msg("Tick")

	s.publish(Tick{Point: p, State: st})
	return st, nil
}

// CurrentPrice is the spot price per troy ounce.
func (s *Session) CurrentPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.Current()
}

func (s *Session) PricePerGram() float64 { return market.PerGram(s.CurrentPrice()) }

func (s *Session) PricePerKg() float64 { return market.PerKg(s.CurrentPrice()) }

func (s *Session) PriceState() market.PriceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.State()
}

func (s *Session) ChartSeries(h market.Horizon) ([]market.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.charts.Select(h)
}

// AppendChart feeds a point into any horizon, not just the live one.
func (s *Session) AppendChart(h market.Horizon, p market.PricePoint) error {
	if !market.IsFinite(p.Price) || p.Price <= 0 {
		return fmt.Errorf("append chart: %w: price %v", broker.ErrInvalidAmount, p.Price)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.charts.Append(h, p)
}

func (s *Session) Wallets() []broker.Wallet { return s.engine.Wallets() }

func (s *Session) OpenPositions() []broker.Position { return s.engine.Positions() }

// Transactions are newest first.
func (s *Session) Transactions() []broker.Transaction { return s.engine.Transactions() }

// Equity is the Trading balance plus unrealized P/L at the current price.
func (s *Session) Equity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Equity(market.PerGram(s.gen.Current()))
}

// Snapshot is the session state at one price.
type Snapshot struct {
	Active bool
	State  market.PriceState
	sim.Snapshot
}

// Snapshot reads the price and the whole account under the session lock,
// so no tick or settlement can land between its parts.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.gen.State()
	return Snapshot{
		Active:   s.active,
		State:    st,
		Snapshot: s.engine.Snapshot(market.PerGram(st.Current)),
	}
}

// UnrealizedPL values an open position at the current per-gram price.
func (s *Session) UnrealizedPL(positionID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.UnrealizedPL(positionID, market.PerGram(s.gen.Current()))
}

// OpenPosition opens a position at the current per-gram price.
func (s *Session) OpenPosition(ctx context.Context, side broker.Side, sizeGrams float64) (broker.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return broker.Position{}, fmt.Errorf("open position: %w", broker.ErrSessionInactive)
	}
	return s.engine.OpenPosition(ctx, side, sizeGrams, market.PerGram(s.gen.Current()))
}

// ClosePosition settles a position at the current per-gram price. The
// session lock keeps the price from moving between read and settlement.
func (s *Session) ClosePosition(ctx context.Context, positionID string) (broker.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return broker.Transaction{}, fmt.Errorf("close position: %w", broker.ErrSessionInactive)
	}
	return s.engine.ClosePosition(ctx, positionID, market.PerGram(s.gen.Current()))
}

func (s *Session) CloseAll(ctx context.Context) ([]broker.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, fmt.Errorf("close all: %w", broker.ErrSessionInactive)
	}
	return s.engine.CloseAll(ctx, market.PerGram(s.gen.Current()))
}

func (s *Session) Deposit(ctx context.Context, amountUSD float64) (broker.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return broker.Transaction{}, fmt.Errorf("deposit: %w", broker.ErrSessionInactive)
	}
	return s.engine.Deposit(ctx, amountUSD)
}

func (s *Session) Withdraw(ctx context.Context, amountUSD float64) (broker.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return broker.Transaction{}, fmt.Errorf("withdraw: %w", broker.ErrSessionInactive)
	}
	return s.engine.Withdraw(ctx, amountUSD)
}

// QuotePhysical prices a bullion order at the current per-gram price.
func (s *Session) QuotePhysical(side broker.Side, grams float64) (sim.PhysicalQuote, error) {
	return sim.QuotePhysical(side, grams, s.PricePerGram())
}
