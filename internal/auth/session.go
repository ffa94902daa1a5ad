package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/torosent/authrelay/internal/session"
)

// DefaultHeader is the header the session token travels in.
const DefaultHeader = "authorization"

// SessionProvider reads the token from the session store on every call, so a token
// set by a refresh is picked up by the next request.
type SessionProvider struct {
	store  *session.Store
	header string
	scheme string
}

// NewSessionProvider creates a provider. An empty header means DefaultHeader; an empty
// scheme sends the raw token.
func NewSessionProvider(store *session.Store, header, scheme string) *SessionProvider {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	return &SessionProvider{
		store:  store,
		header: header,
		scheme: strings.TrimSpace(scheme),
	}
}

// Token returns the current session token.
func (p *SessionProvider) Token(ctx context.Context) (string, error) {
	return session.Select(p.store, func(s session.State) string { return s.Token }), nil
}

// InjectHeader sets the token header when a token is present.
func (p *SessionProvider) InjectHeader(ctx context.Context, header http.Header) error {
	token, err := p.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	header.Set(p.header, p.Format(token))
	return nil
}

func (p *SessionProvider) HeaderName() string {
	return p.header
}

func (p *SessionProvider) Format(token string) string {
	if p.scheme == "" {
		return token
	}
	return p.scheme + " " + token
}

// Close is a no-op; the store outlives the provider.
func (p *SessionProvider) Close() error {
	return nil
}
