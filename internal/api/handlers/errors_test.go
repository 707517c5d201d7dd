package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"Feedsync/internal/core/credentials"
	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/reactions"
	"Feedsync/internal/remote"
)

func TestWriteServiceError(t *testing.T) {
	protocol := func(kind error, status int, message string) error {
		return feeds.AsFailure("load", &remote.ProtocolError{Op: "fetch page", Kind: kind, Status: status, Message: message})
	}

	tests := []struct {
		err       error
		name      string
		wantType  string
		wantInMsg string
		status    int
	}{
		{name: "validation", err: feeds.NewValidationError("mood", "unknown"), status: http.StatusBadRequest, wantType: "InvalidRequest"},
		{name: "reaction sentinel", err: fmt.Errorf("%w: 0", reactions.ErrInvalidItemID), status: http.StatusBadRequest, wantType: "InvalidRequest"},
		{name: "no credentials", err: &feeds.Failure{Op: "load", Kind: feeds.FailureUnauthenticated, Err: credentials.ErrNoCredentials}, status: http.StatusUnauthorized, wantType: "AuthRequired"},
		{name: "remote rejected token", err: protocol(remote.ErrUnauthorized, http.StatusUnauthorized, "expired"), status: http.StatusUnauthorized, wantType: "AuthRequired"},
		{name: "remote forbids", err: protocol(remote.ErrForbidden, http.StatusForbidden, ""), status: http.StatusForbidden, wantType: "NotAuthorized"},
		{name: "remote not found", err: protocol(remote.ErrNotFound, http.StatusNotFound, ""), status: http.StatusNotFound, wantType: "NotFound"},
		{name: "remote server error", err: protocol(remote.ErrServer, http.StatusInternalServerError, "story service down"), status: http.StatusBadGateway, wantType: "UpstreamError", wantInMsg: "story service down"},
		{name: "network", err: feeds.AsFailure("load", &remote.NetworkError{Op: "fetch page", Err: errors.New("no route to host")}), status: http.StatusBadGateway, wantType: "NetworkError"},
		{name: "cancelled", err: context.Canceled, status: http.StatusServiceUnavailable, wantType: "Cancelled"},
		{name: "unexpected", err: errors.New("disk full"), status: http.StatusInternalServerError, wantType: "InternalServerError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteServiceError(w, "test op", tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"`+tt.wantType+`"`)
			if tt.wantInMsg != "" {
				assert.Contains(t, w.Body.String(), tt.wantInMsg)
			}
		})
	}
}
