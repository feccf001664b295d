package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"appscout/internal/config"
	"appscout/internal/core"
	"appscout/internal/logger"
	"appscout/internal/pipeline"
	"appscout/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SessionStore is the persistence the session endpoints need.
type SessionStore interface {
	Save(ctx context.Context, session *core.Session) error
	Get(ctx context.Context, id string) (*core.Session, error)
	List(ctx context.Context, limit int) ([]store.SessionSummary, error)
}

// Deps are the engines and stores the API serves.
type Deps struct {
	Clusterer   pipeline.KeywordClusterer
	Analyzer    pipeline.GapAnalyzer
	Recommender pipeline.Recommender
	Runner      *pipeline.Runner // optional; enables POST /api/sessions
	Sessions    SessionStore     // optional; enables /api/sessions
	Country     string
	TopN        int
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     config.Server
	log        zerolog.Logger
}

// New creates a new HTTP server instance
func New(deps Deps, cfg config.Server) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		config: cfg,
		log:    logger.With("component", "server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  config.Duration(cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: config.Duration(cfg.WriteTimeout, 10*time.Minute),
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/clusters", func(r chi.Router) {
			r.Post("/", s.handleClusterKeywords)
			r.Post("/merge", s.handleMerge)
			r.Post("/split", s.handleSplit)
			r.Post("/rename", s.handleRename)
			r.Post("/remove", s.handleRemove)
		})

		r.Post("/gap-analyses", s.handleGapAnalyses)
		r.Post("/recommendations", s.handleRecommendations)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}", s.handleGetSession)
			r.Get("/{id}/report", s.handleSessionReport)
			r.Post("/{id}/clusters/{clusterID}/reanalyze", s.handleReanalyze)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("read_timeout", s.httpServer.ReadTimeout).
		Dur("write_timeout", s.httpServer.WriteTimeout).
		Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
