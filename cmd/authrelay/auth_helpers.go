package main

import (
	"fmt"
	"log/slog"

	"github.com/torosent/authrelay/internal/auth"
	"github.com/torosent/authrelay/internal/config"
	"github.com/torosent/authrelay/internal/httpclient"
)

// buildRefresher maps the refresh settings onto a Refresher. The none strategy yields
// nil, which makes every auth failure final.
func buildRefresher(cfg *config.Config, logger *slog.Logger) (auth.Refresher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	r := cfg.Refresh
	client := httpclient.NewResty(httpclient.NewHTTPClient(r.Timeout), logger)

	switch r.Strategy {
	case config.RefreshNone:
		return nil, nil
	case config.RefreshEndpoint, "":
		return auth.NewEndpointRefresher(client, r.Path, r.TokenPath), nil
	case config.RefreshOAuth2ClientCredentials:
		return auth.NewOAuth2Refresher(client, auth.OAuth2Config{
			Grant:        auth.GrantClientCredentials,
			TokenURL:     r.TokenURL,
			ClientID:     r.ClientID,
			ClientSecret: r.ClientSecret,
			Scopes:       r.Scopes,
		})
	case config.RefreshOAuth2Password:
		return auth.NewOAuth2Refresher(client, auth.OAuth2Config{
			Grant:        auth.GrantPassword,
			TokenURL:     r.TokenURL,
			ClientID:     r.ClientID,
			ClientSecret: r.ClientSecret,
			Username:     r.Username,
			Password:     r.Password,
			Scopes:       r.Scopes,
		})
	default:
		return nil, fmt.Errorf("unsupported refresh strategy %q", r.Strategy)
	}
}
