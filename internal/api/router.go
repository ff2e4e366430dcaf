package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the broker probe inside the health handler.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Event endpoints accept both verbs: sensor integrations vary in
		// what they can send.
		r.Get("/events", s.handleScheduleEvent)
		r.Post("/events", s.handleScheduleEvent)
		r.Get("/events/cancel", s.handleCancelEvent)
		r.Post("/events/cancel", s.handleCancelEvent)
	})

	// Legacy route aliases kept for callers wired against the old
	// function endpoints.
	r.Get("/api/ReceiveRequest", s.handleScheduleEvent)
	r.Post("/api/ReceiveRequest", s.handleScheduleEvent)
	r.Get("/api/CancelRequest", s.handleCancelEvent)
	r.Post("/api/CancelRequest", s.handleCancelEvent)

	return r
}

// handleHealth returns the server health status, including a broker probe
// when a queue health checker was supplied.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	queueStatus := "unknown"

	if s.queue != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.queue.HealthCheck(ctx); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			queueStatus = err.Error()
		} else {
			queueStatus = "ok"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  status,
		"version": s.version,
		"queue":   queueStatus,
	})
}
