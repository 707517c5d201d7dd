package routes

import (
	"Feedsync/internal/api/handlers/reaction"
	"Feedsync/internal/api/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterReactionRoutes registers the viewer's reaction endpoints
func RegisterReactionRoutes(r chi.Router, engine reaction.PartitionSource, auth *middleware.BearerAuth) {
	h := reaction.NewHandler(engine)

	r.With(auth.Middleware).Post("/feeds/{feed}/items/{id}/reaction", h.HandleApply)
	r.With(auth.Middleware).Delete("/feeds/{feed}/items/{id}/reaction", h.HandleRemove)
}
