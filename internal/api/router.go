package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gwi.com/secret-santa-bot/internal/auth"
)

// NewRouter serves the health check, and the Telegram webhook when
// webhookEnabled is set.
func NewRouter(apiHandler *APIHandler, webhookEnabled bool, webhookSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		if webhookEnabled {
			r.Group(func(r chi.Router) {
				r.Use(auth.WebhookSecretMiddleware(webhookSecret))
				r.Post("/telegram/webhook", apiHandler.WebhookHandler)
			})
		}
	})

	return r
}
