package session

import (
	"errors"

	"github.com/rustyeddy/goldsim/broker"
)

const subscriberBuffer = 16

// Subscribe returns a channel that receives every committed tick and a
// function that unsubscribes and closes it. Slow subscribers miss ticks
// rather than stall the ticker.
func (s *Session) Subscribe() (<-chan Tick, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Tick, subscriberBuffer)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) publish(t Tick) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- t:
		default:
			s.log.Warn().Str("label", t.Point.Label).Msg("Subscriber channel full, dropping tick")
		}
	}
}

func isInactive(err error) bool {
	return errors.Is(err, broker.ErrSessionInactive)
}
