// Package feed serves the cached feed partitions and drives their paging windows
package feed

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Feedsync/internal/api/handlers"
	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/feedsync"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// PartitionSource resolves a feed kind to its partition
type PartitionSource interface {
	Partition(kind feeds.Kind) (*feedsync.Partition, error)
}

// Handler serves feed reads and page loads
type Handler struct {
	engine PartitionSource
}

// NewHandler creates a feed handler
func NewHandler(engine PartitionSource) *Handler {
	return &Handler{engine: engine}
}

// ListResponse is a page of cached items in descending id order.
// Cursor is the id to pass as before for the next page, nil at the end.
type ListResponse struct {
	Cursor *int64           `json:"cursor,omitempty"`
	Feed   feeds.Kind       `json:"feed"`
	Items  []feeds.FeedItem `json:"items"`
}

// HandleList returns cached items
// GET /feeds/{feed}/items?limit=50&before=123
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w, r)
	if !ok {
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	var before *int64
	if v := r.URL.Query().Get("before"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "before must be a positive item id")
			return
		}
		before = &id
	}

	items, err := partition.Cache.List(r.Context(), limit, before)
	if err != nil {
		handlers.WriteServiceError(w, "list feed", err)
		return
	}

	resp := ListResponse{Feed: partition.Kind, Items: items}
	if resp.Items == nil {
		resp.Items = []feeds.FeedItem{}
	}
	if len(items) == limit {
		next := items[len(items)-1].ItemID
		resp.Cursor = &next
	}
	handlers.WriteJSON(w, http.StatusOK, resp)
}

// HandleRefresh reloads the partition from its refresh cursor
// POST /feeds/{feed}/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w, r)
	if !ok {
		return
	}

	res, err := partition.Pager.Refresh(r.Context())
	if err != nil {
		handlers.WriteServiceError(w, "refresh feed", err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, res)
}

// HandleAppend loads the next page
// POST /feeds/{feed}/append
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w, r)
	if !ok {
		return
	}

	res, err := partition.Pager.LoadNext(r.Context())
	if err != nil {
		handlers.WriteServiceError(w, "append feed", err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) partition(w http.ResponseWriter, r *http.Request) (*feedsync.Partition, bool) {
	kind, err := feeds.ParseKind(chi.URLParam(r, "feed"))
	if err != nil {
		handlers.WriteError(w, http.StatusNotFound, "FeedNotFound", err.Error())
		return nil, false
	}
	partition, err := h.engine.Partition(kind)
	if err != nil {
		handlers.WriteError(w, http.StatusNotFound, "FeedNotFound", err.Error())
		return nil, false
	}
	return partition, true
}
