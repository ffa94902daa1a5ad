// Package auth supplies the session token to outgoing requests and replaces it when
// the server rejects it.
package auth

import (
	"context"
	"net/http"
)

// Provider defines the interface for authentication providers that can
// obtain tokens and inject them into HTTP requests.
type Provider interface {
	// Token returns the token to send, or "" when there is none.
	Token(ctx context.Context) (string, error)

	// InjectHeader writes the token into header. With no token the header is left untouched.
	InjectHeader(ctx context.Context, header http.Header) error

	// HeaderName is the header InjectHeader writes.
	HeaderName() string

	// Format renders a raw token the way InjectHeader would.
	Format(token string) string

	// Close releases any resources held by the provider.
	Close() error
}

// RefreshInput describes the request whose credentials were rejected.
type RefreshInput struct {
	BaseURL string
	Header  http.Header
}

// Refresher obtains a replacement token. An empty token with a nil error means the
// session cannot be renewed.
type Refresher interface {
	Refresh(ctx context.Context, in RefreshInput) (string, error)
}
