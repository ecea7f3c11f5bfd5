package market

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrGenerationFault is returned when a tick would produce a non-finite or
// non-positive price. The generator keeps its last good state.
var ErrGenerationFault = errors.New("price generation fault")

// Source is the random source the simulator draws from. *rand.Rand
// satisfies it; tests use scripted sources to pin exact sequences.
type Source interface {
	Float64() float64
}

type GeneratorConfig struct {
	InitialPrice   float64
	Volatility     float64
	Bias           float64 // subtracted from U(0,1); below 0.5 skews upward
	DriftResetProb float64
	DriftBound     float64 // drift is resampled from [-DriftBound, DriftBound]
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		InitialPrice:   3884.00,
		Volatility:     0.5,
		Bias:           0.48,
		DriftResetProb: 0.10,
		DriftBound:     0.05,
	}
}

// Generator produces the synthetic spot price: a random walk with a
// persistent drift that is occasionally resampled.
//
// Each Tick draws from the source in a fixed order: one draw for the
// drift reset decision, one more for the new drift if it resets, then one
// for the change itself. Generator is not safe for concurrent use.
type Generator struct {
	cfg   GeneratorConfig
	rng   Source
	state PriceState
	log   zerolog.Logger
}

// NewGenerator seeds the starting drift with one draw from rng.
func NewGenerator(cfg GeneratorConfig, rng Source) (*Generator, error) {
	if !IsFinite(cfg.InitialPrice) || cfg.InitialPrice <= 0 {
		return nil, fmt.Errorf("new generator: initial price must be positive, got %v", cfg.InitialPrice)
	}
	if rng == nil {
		return nil, errors.New("new generator: nil random source")
	}
	g := &Generator{
		cfg: cfg,
		rng: rng,
		log: zerolog.Nop(),
	}
	g.state = PriceState{
		Current:   cfg.InitialPrice,
		Drift:     g.sampleDrift(),
		Direction: Neutral,
	}
	return g, nil
}

func (g *Generator) SetLogger(log zerolog.Logger) {
	g.log = log.With().Str("component", "price_generator").Logger()
}

func (g *Generator) State() PriceState { return g.state }

func (g *Generator) Current() float64 { return g.state.Current }

// SetDrift overrides the persistent drift term.
func (g *Generator) SetDrift(d float64) { g.state.Drift = d }

func (g *Generator) sampleDrift() float64 {
	return (g.rng.Float64() - 0.5) * 2 * g.cfg.DriftBound
}

// Tick advances the price by one step and returns the new state.
func (g *Generator) Tick() (PriceState, error) {
	if g.rng.Float64() < g.cfg.DriftResetProb {
		g.state.Drift = g.sampleDrift()
		g.log.Debug().Float64("drift", g.state.Drift).Msg("Drift reset")
	}
	change := (g.rng.Float64()-g.cfg.Bias)*g.cfg.Volatility + g.state.Drift
	return g.Step(change)
}

// Step applies change to the current price, rounds to cents and derives
// direction and percent change from the unrounded change.
func (g *Generator) Step(change float64) (PriceState, error) {
	prev := g.state.Current
	next := Round2(prev + change)

	if !IsFinite(change) || !IsFinite(next) || next <= 0 {
		g.log.Error().
			Float64("previous", prev).
			Float64("change", change).
			Float64("candidate", next).
			Msg("Generation fault, keeping last good price")
		return g.state, fmt.Errorf("tick: %w: %v + %v -> %v", ErrGenerationFault, prev, change, next)
	}

	st := g.state
	st.Current = next
	if prev > 0 {
		st.ChangePercent = change / prev * 100
		st.Direction = DirectionOf(change)
	}
	g.state = st
	return st, nil
}
