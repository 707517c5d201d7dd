package middleware

import (
	"log"
	"net/http"
	"strings"

	"Feedsync/internal/core/credentials"
)

// BearerAuth carries the viewer's access token from the Authorization header into the
// request context, where credentials.ContextProvider picks it up.
// Token validation is the remote service's job; this middleware only extracts it.
type BearerAuth struct {
	fallback credentials.Provider
	// required rejects requests without a token and without a fallback credential
	required bool
}

// NewBearerAuth creates the middleware. With required set, a request is rejected when
// neither the header nor fallback yields a token.
func NewBearerAuth(fallback credentials.Provider, required bool) *BearerAuth {
	return &BearerAuth{fallback: fallback, required: required}
}

// Middleware injects the bearer token, if any
func (m *BearerAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, "Invalid Authorization header format. Expected: Bearer <token>")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeAuthError(w, "Empty bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(credentials.WithAccessToken(r.Context(), token)))
			return
		}

		if m.required && !m.hasFallback(r) {
			writeAuthError(w, "Missing Authorization header")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *BearerAuth) hasFallback(r *http.Request) bool {
	if m.fallback == nil {
		return false
	}
	creds, err := m.fallback.Credentials(r.Context())
	return err == nil && creds.AccessToken != ""
}

// GetAccessToken extracts the request's bearer token.
// Returns empty string if none was sent.
func GetAccessToken(r *http.Request) string {
	return credentials.AccessTokenFromContext(r.Context())
}

// writeAuthError writes a JSON error response for authentication failures
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	response := `{"error":"AuthenticationRequired","message":"` + message + `"}`
	if _, err := w.Write([]byte(response)); err != nil {
		log.Printf("Failed to write auth error response: %v", err)
	}
}
