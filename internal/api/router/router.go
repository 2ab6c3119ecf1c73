// Package router assembles the HTTP API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/finofficer/autoreply/internal/http/handlers"
	httpmiddleware "github.com/finofficer/autoreply/internal/http/middleware"
	"github.com/finofficer/autoreply/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	EmailHandler     *handlers.EmailHandler
	TemplatesHandler *handlers.TemplatesHandler
	MetricsHandler   http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.EmailHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/emails", cfg.EmailHandler.Enqueue)
		api.Post("/emails/process", cfg.EmailHandler.Process)
		if cfg.TemplatesHandler != nil {
			api.Get("/templates", cfg.TemplatesHandler.List)
			api.Get("/templates/{key}", cfg.TemplatesHandler.Get)
		}
	})

	return r
}
