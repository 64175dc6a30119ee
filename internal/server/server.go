// Package server wires the HTTP API: region and engine routes, the event
// stream and system monitoring.
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

	"github.com/aristath/substrate/internal/config"
	"github.com/aristath/substrate/internal/database"
	"github.com/aristath/substrate/internal/events"
	"github.com/aristath/substrate/internal/modules/region"
	"github.com/aristath/substrate/internal/network"
	"github.com/aristath/substrate/internal/scheduler"
	"github.com/aristath/substrate/internal/ticker"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	LedgerDB  *database.DB
	CacheDB   *database.DB
	Regions   *region.Service
	Ledger    *region.LedgerRepository
	Events    *events.Manager
	Hub       *network.Hub
	Ticker    *ticker.Ticker
	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	ledgerDB       *database.DB
	cacheDB        *database.DB
	regions        *region.Service
	hub            *network.Hub
	systemHandlers *SystemHandlers
	regionHandlers *region.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		cfg:      cfg.Config,
		ledgerDB: cfg.LedgerDB,
		cacheDB:  cfg.CacheDB,
		regions:  cfg.Regions,
		hub:      cfg.Hub,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config,
			cfg.LedgerDB,
			cfg.CacheDB,
			cfg.Regions,
			cfg.Hub,
			cfg.Ticker,
		),
		regionHandlers: region.NewHandler(cfg.Regions, cfg.Ledger, cfg.Events, cfg.Log),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// Live event stream (outside /api so the timeout middleware does not
	// apply; the hub manages its own deadlines)
	if s.hub != nil {
		s.router.Get("/ws", s.hub.ServeWS)
	}

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		s.regionHandlers.RegisterRoutes(r)
		s.setupSystemRoutes(r)
	})
}

// setupSystemRoutes configures system monitoring routes
func (s *Server) setupSystemRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", s.systemHandlers.HandleSystemStatus)
		r.Get("/stats", s.systemHandlers.HandleEngineStats)
		r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests.
func (s *Server) Router() http.Handler {
	return s.router
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
