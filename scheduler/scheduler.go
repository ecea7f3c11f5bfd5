// Package scheduler provides the repeating timers that drive the price
// ticker.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var ErrRunning = errors.New("timer already running")

// Cron runs a callback on a fixed interval using robfig/cron. A run that
// is still going when the next one is due is skipped, so callbacks never
// overlap. Each Start builds a fresh cron so a stopped timer can be
// started again.
type Cron struct {
	mu   sync.Mutex
	cron *cron.Cron
	name string
	log  zerolog.Logger
}

func NewCron(name string, log zerolog.Logger) *Cron {
	return &Cron{
		name: name,
		log:  log.With().Str("component", "scheduler").Str("job", name).Logger(),
	}
}

// Start schedules fn every interval. cron's resolution is one second;
// shorter intervals run once a second.
func (c *Cron) Start(interval time.Duration, fn func()) error {
	if interval <= 0 {
		return fmt.Errorf("start %s: interval must be positive, got %s", c.name, interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return fmt.Errorf("start %s: %w", c.name, ErrRunning)
	}

	cr := cron.New(cron.WithChain(
		cron.Recover(cronLogger{c.log}),
		cron.SkipIfStillRunning(cronLogger{c.log}),
	))
	cr.Schedule(cron.Every(interval), cron.FuncJob(fn))
	cr.Start()
	c.cron = cr

	c.log.Info().Dur("interval", interval).Msg("Timer started")
	return nil
}

// Stop cancels the schedule and blocks until a running callback returns.
func (c *Cron) Stop() {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return
	}
	<-cr.Stop().Done()
	c.log.Info().Msg("Timer stopped")
}

func (c *Cron) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cron != nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// Manual never fires on its own. It is used when the caller drives ticks
// directly, as the simulate command does.
type Manual struct {
	mu      sync.Mutex
	running bool
}

func (m *Manual) Start(time.Duration, func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrRunning
	}
	m.running = true
	return nil
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
