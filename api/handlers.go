package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rustyeddy/goldsim/broker"
	"github.com/rustyeddy/goldsim/broker/sim"
	"github.com/rustyeddy/goldsim/market"
)

const msgpackContentType = "application/x-msgpack"

// PriceResponse is the spot price in every unit the UI shows.
type PriceResponse struct {
	PerOunce float64           `json:"perOunce"`
	PerGram  float64           `json:"perGram"`
	PerKg    float64           `json:"perKg"`
	State    market.PriceState `json:"state"`
}

// PositionView is an open position valued at the current price.
type PositionView = sim.ValuedPosition

// Snapshot is everything a client needs to render the dashboard.
type Snapshot struct {
	Active       bool                 `json:"active"`
	Price        PriceResponse        `json:"price"`
	Equity       float64              `json:"equity"`
	Wallets      []broker.Wallet      `json:"wallets"`
	Positions    []PositionView       `json:"positions"`
	Transactions []broker.Transaction `json:"transactions"`
}

type ChartResponse struct {
	Horizon market.Horizon      `json:"horizon"`
	Points  []market.PricePoint `json:"points"`
	Summary *market.Summary     `json:"summary,omitempty"`
	SMA     []float64           `json:"sma,omitempty"`
}

type openPositionRequest struct {
	Side      string  `json:"side"`
	SizeGrams float64 `json:"sizeGrams"`
}

type amountRequest struct {
	AmountUSD float64 `json:"amountUSD"`
}

type quoteRequest struct {
	Side  string  `json:"side"`
	Grams float64 `json:"grams"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": s.session.Active()})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Activate(); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.session.Deactivate()
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": false})
}

func (s *Server) price() PriceResponse {
	return priceResponse(s.session.PriceState())
}

func priceResponse(st market.PriceState) PriceResponse {
	return PriceResponse{
		PerOunce: st.Current,
		PerGram:  market.PerGram(st.Current),
		PerKg:    market.PerKg(st.Current),
		State:    st,
	}
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.price())
}

func (s *Server) positions() []PositionView {
	open := s.session.OpenPositions()
	out := make([]PositionView, 0, len(open))
	for _, p := range open {
		pl, err := s.session.UnrealizedPL(p.ID)
		if err != nil {
			// closed between the list and the valuation
			continue
		}
		out = append(out, PositionView{Position: p, UnrealizedPL: pl})
	}
	return out
}

func (s *Server) snapshot() Snapshot {
	snap := s.session.Snapshot()
	positions := snap.Positions
	if positions == nil {
		positions = []PositionView{}
	}
	return Snapshot{
		Active:       snap.Active,
		Price:        priceResponse(snap.State),
		Equity:       snap.Equity,
		Wallets:      snap.Wallets,
		Positions:    positions,
		Transactions: snap.Transactions,
	}
}

// handleSnapshot answers in msgpack when the client asks for it, JSON
// otherwise.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()

	if !strings.Contains(r.Header.Get("Accept"), msgpackContentType) {
		s.writeJSON(w, http.StatusOK, snap)
		return
	}

	w.Header().Set("Content-Type", msgpackContentType)
	w.WriteHeader(http.StatusOK)
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(snap); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode msgpack response")
	}
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]float64{"equity": s.session.Equity()})
}

// handleChart returns a horizon's series. ?sma=N adds an N point moving
// average; ?stats=1 adds summary statistics.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	h, err := market.ParseHorizon(chi.URLParam(r, "horizon"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	pts, err := s.session.ChartSeries(h)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	resp := ChartResponse{Horizon: h, Points: pts}

	q := r.URL.Query()
	if q.Get("stats") != "" {
		sum, err := market.Summarize(pts)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Summary = &sum
	}
	if v := q.Get("sma"); v != "" {
		period, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "sma must be an integer")
			return
		}
		sma, err := market.MovingAverage(pts, period)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.SMA = sma
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAppendChart(w http.ResponseWriter, r *http.Request) {
	h, err := market.ParseHorizon(chi.URLParam(r, "horizon"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var p market.PricePoint
	if !s.decode(w, r, &p) {
		return
	}
	if err := s.session.AppendChart(h, p); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Wallets())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.session.Transactions()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < len(txs) {
			txs = txs[:n]
		}
	}
	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.positions())
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var req openPositionRequest
	if !s.decode(w, r, &req) {
		return
	}
	side, err := broker.ParseSide(req.Side)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	p, err := s.session.OpenPosition(r.Context(), side, req.SizeGrams)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, PositionView{Position: p})
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	tx, err := s.session.ClosePosition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	txs, err := s.session.CloseAll(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	tx, err := s.session.Deposit(r.Context(), req.AmountUSD)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	tx, err := s.session.Withdraw(r.Context(), req.AmountUSD)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleQuotePhysical(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	side, err := broker.ParseSide(req.Side)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	q, err := s.session.QuotePhysical(side, req.Grams)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Request failed")
	}
	s.writeError(w, status, err.Error())
}
