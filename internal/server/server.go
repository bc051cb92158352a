// Package server exposes newsletter generation and scheduled runs over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"newsroom/internal/config"
	"newsroom/internal/logger"
	"newsroom/internal/persistence"
	"newsroom/internal/pipeline"
	"newsroom/internal/schedule"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Database is what the server needs from persistence
type Database interface {
	Ping(ctx context.Context) error
	DeliveryLogs() persistence.DeliveryLogRepository
}

// NewsletterGenerator generates a newsletter for a user
type NewsletterGenerator interface {
	Generate(ctx context.Context, userID int64) (*pipeline.Newsletter, error)
}

// ScheduleRunner processes due schedules once
type ScheduleRunner interface {
	RunDue(ctx context.Context) (schedule.Summary, error)
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	db         Database
	generator  NewsletterGenerator
	runner     ScheduleRunner
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance
func New(db Database, generator NewsletterGenerator, runner ScheduleRunner, cfg config.Server) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		db:        db,
		generator: generator,
		runner:    runner,
		config:    cfg,
		log:       logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)

	// Generation makes one LLM call plus source fetches; keep below the write timeout.
	timeout := s.config.WriteTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	s.router.Use(middleware.Timeout(timeout))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/newsletters", s.handleGenerateNewsletter)
			r.Get("/deliveries", s.handleListDeliveries)
		})

		r.With(s.requireAdminAPI).Post("/schedules/run", s.handleRunSchedules)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
