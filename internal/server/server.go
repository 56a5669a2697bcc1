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

	"github.com/ksfraser/WealthSystem-sub012/internal/config"
	"github.com/ksfraser/WealthSystem-sub012/internal/database/repositories"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/indicators"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/marketdata"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/notify"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/scoring"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/universe"
)

// Config holds server configuration: the single application database
// (internal/database/db.go) plus the scoring, market-data, and
// notification components this module's read-only report surface is
// built on.
type Config struct {
	Port           int
	Log            zerolog.Logger
	Config         *config.Config
	DevMode        bool
	Marketdata     *marketdata.Facade
	IndicatorCache *indicators.Cache
	ScoringEngine  *scoring.Engine
	TradingRepo    *repositories.TradingRepository
	SecurityRepo   *repositories.SecurityRepository
	Hub            *notify.Hub
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	marketdata     *marketdata.Facade
	indicatorCache *indicators.Cache
	scoringEngine  *scoring.Engine
	tradingRepo    *repositories.TradingRepository
	securityRepo   *repositories.SecurityRepository
	catalog        *universe.Catalog
	hub            *notify.Hub
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		marketdata:     cfg.Marketdata,
		indicatorCache: cfg.IndicatorCache,
		scoringEngine:  cfg.ScoringEngine,
		tradingRepo:    cfg.TradingRepo,
		securityRepo:   cfg.SecurityRepo,
		hub:            cfg.Hub,
	}
	if cfg.SecurityRepo != nil {
		s.catalog = universe.New(cfg.SecurityRepo, cfg.Log)
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

	// Live event feed (margin calls, forced liquidations, rebalances)
	if s.hub != nil {
		s.router.Get("/ws/notify", s.hub.ServeWS)
	}

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		s.setupReportRoutes(r)
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
