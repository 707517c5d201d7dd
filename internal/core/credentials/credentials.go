// Package credentials resolves the access token the engine presents to the remote
// feed service. Login and token refresh live outside this repository; the engine only
// needs to know whether a token is available right now.
package credentials

import (
	"context"
	"errors"
	"strings"
)

// ErrNoCredentials is returned when no access token is available
var ErrNoCredentials = errors.New("no credentials available")

// Credentials is the viewer's current auth data
type Credentials struct {
	AccessToken string
	MemberID    int64
}

// Provider resolves the credentials for the current operation
type Provider interface {
	// Credentials returns ErrNoCredentials when the viewer is signed out
	Credentials(ctx context.Context) (Credentials, error)
}

type contextKey struct{}

// WithAccessToken attaches a request-scoped access token to ctx
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, strings.TrimSpace(token))
}

// AccessTokenFromContext returns the request-scoped token, or "" when absent
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(contextKey{}).(string)
	return token
}

// Static always returns the same credentials. An empty token behaves as signed out.
type Static struct {
	creds Credentials
}

// NewStatic creates a provider for a fixed token
func NewStatic(accessToken string, memberID int64) *Static {
	return &Static{creds: Credentials{
		AccessToken: strings.TrimSpace(accessToken),
		MemberID:    memberID,
	}}
}

// Credentials implements Provider
func (s *Static) Credentials(ctx context.Context) (Credentials, error) {
	if s == nil || s.creds.AccessToken == "" {
		return Credentials{}, ErrNoCredentials
	}
	return s.creds, nil
}

// ContextProvider prefers a token attached to the context and falls back to another
// provider, which may be nil.
type ContextProvider struct {
	fallback Provider
}

// NewContextProvider creates a provider that reads WithAccessToken values first
func NewContextProvider(fallback Provider) *ContextProvider {
	return &ContextProvider{fallback: fallback}
}

// Credentials implements Provider
func (p *ContextProvider) Credentials(ctx context.Context) (Credentials, error) {
	if token := AccessTokenFromContext(ctx); token != "" {
		return Credentials{AccessToken: token}, nil
	}
	if p.fallback == nil {
		return Credentials{}, ErrNoCredentials
	}
	return p.fallback.Credentials(ctx)
}
