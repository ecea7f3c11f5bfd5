// Package api exposes a session over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/goldsim/session"
)

// Config holds server configuration
type Config struct {
	Addr       string
	CORSOrigin string
	Session    *session.Session
	Log        zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	session *session.Session
	origin  string
	log     zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	s := &Server{
		router:  chi.NewRouter(),
		session: cfg.Session,
		origin:  cfg.CORSOrigin,
		log:     cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.origin},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// The stream is long lived and must not sit behind the timeout.
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Route("/session", func(r chi.Router) {
				r.Get("/", s.handleSessionStatus)
				r.Post("/activate", s.handleActivate)
				r.Post("/deactivate", s.handleDeactivate)
			})

			r.Get("/price", s.handlePrice)
			r.Get("/snapshot", s.handleSnapshot)
			r.Get("/equity", s.handleEquity)

			r.Get("/chart/{horizon}", s.handleChart)
			r.Post("/chart/{horizon}", s.handleAppendChart)

			r.Get("/wallets", s.handleWallets)
			r.Get("/transactions", s.handleTransactions)

			r.Route("/positions", func(r chi.Router) {
				r.Get("/", s.handleListPositions)
				r.Post("/", s.handleOpenPosition)
				r.Post("/close-all", s.handleCloseAll)
				r.Delete("/{id}", s.handleClosePosition)
			})

			r.Post("/funds/deposit", s.handleDeposit)
			r.Post("/funds/withdraw", s.handleWithdraw)

			r.Post("/physical/quote", s.handleQuotePhysical)
		})
	})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
