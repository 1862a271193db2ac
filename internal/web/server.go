// Package web serves the HTTP control surface: the control page, the JSON
// API and the event stream.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/doorlock"
	"github.com/kozaktomas/doorlock/internal/metrics"
	"github.com/kozaktomas/doorlock/internal/web/handlers"
	"github.com/kozaktomas/doorlock/internal/web/middleware"
)

// System is the read side of the door lock used by the server.
type System interface {
	handlers.StatusSource
	Events() *doorlock.Broadcaster
}

// Deps holds the collaborators of the server.
type Deps struct {
	Scheduler handlers.Submitter
	System    System
	Gallery   handlers.TemplateLister
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// Server represents the web server
type Server struct {
	config     config.ServerConfig
	deps       Deps
	log        zerolog.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	r := chi.NewRouter()
	log := deps.Logger.With().Str("component", "web").Logger()

	s := &Server{
		config: cfg,
		deps:   deps,
		log:    log,
		router: r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Bool("auth", s.config.APIToken != "").Msg("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
