package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/moderation"
	"Feedsync/internal/core/reactions"
	"Feedsync/internal/remote"
)

// WriteError writes a standardized JSON error response
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// WriteJSON writes v as a JSON response body
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// WriteServiceError converts engine errors to HTTP responses:
// validation 400, missing credentials 401, remote failures 502 (or the remote's own
// auth/not-found status), anything else 500
func WriteServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case feeds.IsValidationError(err),
		errors.Is(err, reactions.ErrInvalidMood),
		errors.Is(err, reactions.ErrInvalidItemID),
		errors.Is(err, reactions.ErrUnknownAction),
		errors.Is(err, moderation.ErrInvalidReportCode),
		errors.Is(err, moderation.ErrInvalidOwnerID),
		errors.Is(err, moderation.ErrInvalidItemID):
		WriteError(w, http.StatusBadRequest, "InvalidRequest", err.Error())

	case feeds.IsFailure(err, feeds.FailureUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")

	case remote.IsAuthError(err):
		if errors.Is(err, remote.ErrForbidden) {
			WriteError(w, http.StatusForbidden, "NotAuthorized", "Not authorized")
			return
		}
		log.Printf("%s: remote rejected the access token: %v", op, err)
		WriteError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")

	case errors.Is(err, remote.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NotFound", "Story or member not found")

	case feeds.IsFailure(err, feeds.FailureNetwork):
		log.Printf("%s: network failure: %v", op, err)
		WriteError(w, http.StatusBadGateway, "NetworkError", "Remote feed service is unreachable")

	case feeds.IsFailure(err, feeds.FailureProtocol):
		log.Printf("%s: protocol failure: %v", op, err)
		message := "Remote feed service rejected the request"
		var perr *remote.ProtocolError
		if errors.As(err, &perr) && perr.Message != "" {
			message = perr.Message
		}
		WriteError(w, http.StatusBadGateway, "UpstreamError", message)

	case feeds.IsCancellation(err):
		WriteError(w, http.StatusServiceUnavailable, "Cancelled", "Request was cancelled")

	default:
		log.Printf("%s error: %v", op, err)
		WriteError(w, http.StatusInternalServerError, "InternalServerError", "An internal error occurred")
	}
}
