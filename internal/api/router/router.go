// Package router wires the HTTP surface: the bot callback, health and
// metrics endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/moritahq/clinic-reserve-bot/internal/http/handlers"
	httpmiddleware "github.com/moritahq/clinic-reserve-bot/internal/http/middleware"
	"github.com/moritahq/clinic-reserve-bot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Callback       *handlers.CallbackHandler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Callback.HealthCheck)
	r.Post("/callback/lineworks", cfg.Callback.Handle)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
