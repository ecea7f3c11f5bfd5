package cmd

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/goldsim/config"
	"github.com/rustyeddy/goldsim/journal"
	"github.com/rustyeddy/goldsim/session"
)

// newSession wires a session from the config around the given timer.
func newSession(cfg *config.Config, timer session.Timer, j journal.Journal, log zerolog.Logger) (*session.Session, error) {
	acct, err := cfg.BrokerAccount()
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	interval, err := cfg.Simulation.ParseTickInterval()
	if err != nil {
		return nil, fmt.Errorf("tick interval: %w", err)
	}

	return session.New(session.Options{
		Generator:    cfg.Simulation.Generator(),
		Windows:      cfg.Charts.Specs(),
		Account:      acct,
		TickInterval: interval,
		Rand:         cfg.Simulation.Rand(),
		Timer:        timer,
		Journal:      j,
		Logger:       log,
	})
}
