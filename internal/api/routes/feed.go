package routes

import (
	"Feedsync/internal/api/handlers/feed"
	"Feedsync/internal/api/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterFeedRoutes registers cached feed reads, page loads and the live query
func RegisterFeedRoutes(r chi.Router, engine feed.PartitionSource, auth *middleware.BearerAuth) {
	h := feed.NewHandler(engine)

	// Reads come from the local cache only
	r.Get("/feeds/{feed}/items", h.HandleList)
	r.Get("/feeds/{feed}/live", h.HandleLive)

	// Loads call the remote service and need a token
	r.With(auth.Middleware).Post("/feeds/{feed}/refresh", h.HandleRefresh)
	r.With(auth.Middleware).Post("/feeds/{feed}/append", h.HandleAppend)
}
