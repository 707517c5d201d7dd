// Package reaction exposes the viewer's emotion reactions on cached feed items
package reaction

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Feedsync/internal/api/handlers"
	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/feedsync"
)

// PartitionSource resolves a feed kind to its partition
type PartitionSource interface {
	Partition(kind feeds.Kind) (*feedsync.Partition, error)
}

// Handler handles reaction endpoints
type Handler struct {
	engine PartitionSource
}

// NewHandler creates a reaction handler
func NewHandler(engine PartitionSource) *Handler {
	return &Handler{engine: engine}
}

// ApplyRequest is the body of a reaction POST.
// Previous is the reaction the client showed before the tap, if any.
type ApplyRequest struct {
	Previous *string `json:"previous,omitempty"`
	Mood     string  `json:"mood"`
}

// Response carries the updated cached item.
// Item is omitted when the remote accepted the change but the item is not cached.
type Response struct {
	Item *feeds.FeedItem `json:"item,omitempty"`
}

// HandleApply sets the viewer's reaction
// POST /feeds/{feed}/items/{id}/reaction
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	partition, itemID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	mood, err := feeds.ParseMood(req.Mood)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	previous, ok := parsePrevious(w, req.Previous)
	if !ok {
		return
	}

	item, err := partition.Reactions.ApplyReaction(r.Context(), itemID, mood, previous)
	if err != nil {
		handlers.WriteServiceError(w, "apply reaction", err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, Response{Item: item})
}

// HandleRemove clears the viewer's reaction
// DELETE /feeds/{feed}/items/{id}/reaction?previous=HAPPY
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	partition, itemID, ok := h.target(w, r)
	if !ok {
		return
	}

	var raw *string
	if v := r.URL.Query().Get("previous"); v != "" {
		raw = &v
	}
	previous, ok := parsePrevious(w, raw)
	if !ok {
		return
	}

	item, err := partition.Reactions.RemoveReaction(r.Context(), itemID, previous)
	if err != nil {
		handlers.WriteServiceError(w, "remove reaction", err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, Response{Item: item})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (*feedsync.Partition, int64, bool) {
	kind, err := feeds.ParseKind(chi.URLParam(r, "feed"))
	if err != nil {
		handlers.WriteError(w, http.StatusNotFound, "FeedNotFound", err.Error())
		return nil, 0, false
	}
	partition, err := h.engine.Partition(kind)
	if err != nil {
		handlers.WriteError(w, http.StatusNotFound, "FeedNotFound", err.Error())
		return nil, 0, false
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID < 1 {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "item id must be a positive integer")
		return nil, 0, false
	}
	return partition, itemID, true
}

func parsePrevious(w http.ResponseWriter, raw *string) (*feeds.Mood, bool) {
	if raw == nil {
		return nil, true
	}
	previous, err := feeds.ParseOptionalMood(*raw)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return nil, false
	}
	return previous, true
}
