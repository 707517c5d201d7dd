package routes

import (
	"Feedsync/internal/api/handlers/moderation"
	"Feedsync/internal/api/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterModerationRoutes registers block and report endpoints.
// Blocking purges the writer from every cached partition.
func RegisterModerationRoutes(r chi.Router, service moderation.Service, auth *middleware.BearerAuth) {
	h := moderation.NewHandler(service)

	r.With(auth.Middleware).Post("/blocks", h.HandleBlock)
	r.With(auth.Middleware).Post("/reports", h.HandleReport)
}
