// Package server provides the HTTP server and routing for the portfolio API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/mkwei/folio/internal/database"
	"github.com/mkwei/folio/internal/modules/freshness"
	"github.com/mkwei/folio/internal/modules/ledger"
	"github.com/mkwei/folio/internal/modules/portfolio"
	"github.com/mkwei/folio/internal/services"
)

// Config holds server configuration and dependencies.
type Config struct {
	Port      int
	Log       zerolog.Logger
	DB        *database.DB
	Repo      *ledger.Repository
	PLog      *ledger.ProcessingLog
	Portfolio *portfolio.Service
	Freshness *freshness.Service
	Processor *services.Processor
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	db        *database.DB
	repo      *ledger.Repository
	plog      *ledger.ProcessingLog
	portfolio *portfolio.Service
	freshness *freshness.Service
	processor *services.Processor
	startedAt time.Time
	port      int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		db:        cfg.DB,
		repo:      cfg.Repo,
		plog:      cfg.PLog,
		portfolio: cfg.Portfolio,
		freshness: cfg.Freshness,
		processor: cfg.Processor,
		startedAt: time.Now(),
		port:      cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/accounts", s.handleAccounts)
		r.Get("/brokers", s.handleBrokers)
		r.Get("/symbols", s.handleSymbols)
		r.Get("/currencies", s.handleCurrencies)
		r.Get("/transactions", s.handleTransactions)

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/summary", s.handleSummary)
			r.Get("/realized", s.handleRealized)
			r.Get("/holdings", s.handleHoldings)
			r.Get("/unrealized", s.handleUnrealized)
			r.Get("/performance", s.handlePerformance)
		})

		r.Post("/process", s.handleProcess)
		r.Get("/processing-log", s.handleProcessingLog)
		r.Get("/freshness", s.handleFreshness)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
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

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
