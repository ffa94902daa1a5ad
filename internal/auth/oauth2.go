package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// GrantType selects the OAuth2 grant used to mint a replacement token.
type GrantType string

const (
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
)

// OAuth2Config holds the token endpoint credentials.
type OAuth2Config struct {
	Grant        GrantType
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scopes       []string
}

// OAuth2Refresher renews the session against an OAuth2 token endpoint instead of the API.
type OAuth2Refresher struct {
	client *resty.Client
	cfg    OAuth2Config
}

type oauth2TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// NewOAuth2Refresher validates cfg and returns a refresher.
func NewOAuth2Refresher(client *resty.Client, cfg OAuth2Config) (*OAuth2Refresher, error) {
	if cfg.TokenURL == "" {
		return nil, errors.New("oauth2: token url is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("oauth2: client id is required")
	}
	switch cfg.Grant {
	case GrantClientCredentials:
		if cfg.ClientSecret == "" {
			return nil, errors.New("oauth2: client secret is required for client_credentials")
		}
	case GrantPassword:
		if cfg.Username == "" || cfg.Password == "" {
			return nil, errors.New("oauth2: username and password are required for password grant")
		}
	default:
		return nil, fmt.Errorf("oauth2: unsupported grant %q", cfg.Grant)
	}
	return &OAuth2Refresher{client: client, cfg: cfg}, nil
}

// Refresh always requests a new token; the one the API just rejected is never reused.
func (r *OAuth2Refresher) Refresh(ctx context.Context, _ RefreshInput) (string, error) {
	form := map[string]string{"grant_type": string(r.cfg.Grant)}
	if r.cfg.Grant == GrantPassword {
		form["username"] = r.cfg.Username
		form["password"] = r.cfg.Password
	}
	if len(r.cfg.Scopes) > 0 {
		form["scope"] = strings.Join(r.cfg.Scopes, " ")
	}

	req := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(form)
	if r.cfg.ClientSecret != "" {
		req.SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret)
	} else {
		// public client
		req.SetFormData(map[string]string{"client_id": r.cfg.ClientID})
	}

	resp, err := req.Post(r.cfg.TokenURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token: %w", err)
	}

	var tokenResp oauth2TokenResponse
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		if resp.IsError() {
			return "", fmt.Errorf("token request failed with status %d", resp.StatusCode())
		}
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.Error != "" {
		return "", fmt.Errorf("oauth2 error: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}
	if resp.IsError() {
		return "", fmt.Errorf("token request failed with status %d", resp.StatusCode())
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("no access token in response")
	}
	return tokenResp.AccessToken, nil
}
