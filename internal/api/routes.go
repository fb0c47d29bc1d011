package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/mail-dispatch/internal/config"
)

// SetupRoutes configures the gateway router. Transport concerns —
// request IDs, panic recovery, CORS, body-size caps, a concurrency
// throttle, and the per-request timeout that drives dispatch
// cancellation — all live here, outside the core.
func SetupRoutes(h *Handlers, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(cfg.MaxRequestBytes))
	r.Use(middleware.Timeout(cfg.RequestTimeout()))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (no throttle)
	r.Get("/health", h.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		// Each in-flight batch holds one SMTP connection; cap them.
		r.With(middleware.Throttle(cfg.MaxConcurrentRequests)).Post("/send", h.HandleSend)
	})

	return r
}
