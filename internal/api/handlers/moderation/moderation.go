// Package moderation exposes blocking writers and reporting stories
package moderation

import (
	"context"
	"encoding/json"
	"net/http"

	"Feedsync/internal/api/handlers"
	"Feedsync/internal/core/moderation"
)

// Service is the moderation surface the handlers need
type Service interface {
	BlockUser(ctx context.Context, ownerID int64) (int64, error)
	ReportItem(ctx context.Context, itemID int64, code moderation.ReportCode) error
}

// Handler handles moderation endpoints
type Handler struct {
	service Service
}

// NewHandler creates a moderation handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// BlockRequest is the body of POST /blocks
type BlockRequest struct {
	OwnerID int64 `json:"ownerId"`
}

// BlockResponse reports how many cached items were purged
type BlockResponse struct {
	Removed int64 `json:"removed"`
}

// ReportRequest is the body of POST /reports
type ReportRequest struct {
	Code   string `json:"code"`
	ItemID int64  `json:"itemId"`
}

// HandleBlock blocks a writer and purges their items from every cached feed
// POST /blocks
func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	removed, err := h.service.BlockUser(r.Context(), req.OwnerID)
	if err != nil {
		handlers.WriteServiceError(w, "block user", err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, BlockResponse{Removed: removed})
}

// HandleReport files a report against a story
// POST /reports
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	code, err := moderation.ParseReportCode(req.Code)
	if err != nil {
		handlers.WriteServiceError(w, "report item", err)
		return
	}

	if err := h.service.ReportItem(r.Context(), req.ItemID, code); err != nil {
		handlers.WriteServiceError(w, "report item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
