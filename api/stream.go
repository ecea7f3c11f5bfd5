package api

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rustyeddy/goldsim/session"
)

const streamWriteTimeout = 5 * time.Second

// StreamMessage is one frame on /api/stream.
type StreamMessage struct {
	Type  string         `json:"type"` // "hello" or "tick"
	Tick  *session.Tick  `json:"tick,omitempty"`
	Price *PriceResponse `json:"price,omitempty"`
}

// handleStream upgrades to a websocket and pushes every tick until the
// client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if s.origin == "*" {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = []string{s.origin}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	ticks, cancel := s.session.Subscribe()
	defer cancel()

	// Reads are only needed to notice the close frame.
	ctx := conn.CloseRead(r.Context())

	s.log.Info().Msg("Client connected to price stream")

	price := s.price()
	if err := s.writeFrame(ctx, conn, StreamMessage{Type: "hello", Price: &price}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Client disconnected from price stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case t, ok := <-ticks:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := s.writeFrame(ctx, conn, StreamMessage{Type: "tick", Tick: &t}); err != nil {
				s.log.Debug().Err(err).Msg("Stream write failed")
				return
			}
		}
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
