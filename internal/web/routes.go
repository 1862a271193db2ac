package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/doorlock/internal/constants"
	"github.com/kozaktomas/doorlock/internal/web/handlers"
	"github.com/kozaktomas/doorlock/internal/web/middleware"
	"github.com/kozaktomas/doorlock/internal/web/static"
)

func (s *Server) setupRoutes() {
	controlHandler := handlers.NewControlHandler(s.deps.Scheduler, constants.RequestTimeout, s.log)
	statusHandler := handlers.NewStatusHandler(s.deps.System, s.deps.Gallery)
	eventsHandler := handlers.NewEventsHandler(s.deps.System.Events(), s.deps.System)

	// Health check and metrics (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	if s.deps.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.APIToken))

		// Operations go through the scheduler
		r.Get("/capture", controlHandler.Capture)
		r.Post("/enroll", controlHandler.Enroll)
		r.Post("/recognize", controlHandler.Recognize)
		r.Delete("/faces/last", controlHandler.DeleteLast)
		r.Post("/unlock", controlHandler.Unlock)

		// Read-only views
		r.Get("/status", statusHandler.Get)
		r.Get("/faces", statusHandler.ListFaces)
		r.Get("/events", eventsHandler.Stream)
	})

	// Control page
	s.router.Get("/", statusHandler.Index)
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(static.Assets())))
}
