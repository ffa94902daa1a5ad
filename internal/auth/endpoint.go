package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// EndpointRefresher renews the session by calling a refresh endpoint on the API itself,
// presenting the rejected request's headers (and so its expired token).
type EndpointRefresher struct {
	client    *resty.Client
	path      string
	tokenPath string
}

// NewEndpointRefresher creates a refresher that GETs path relative to the request's base
// URL and reads the new token at tokenPath (a gjson path, default "data").
func NewEndpointRefresher(client *resty.Client, path, tokenPath string) *EndpointRefresher {
	if strings.TrimSpace(tokenPath) == "" {
		tokenPath = "data"
	}
	return &EndpointRefresher{client: client, path: path, tokenPath: tokenPath}
}

// Refresh returns "" with a descriptive error on any failure; callers treat both the
// same way and only log the error.
func (r *EndpointRefresher) Refresh(ctx context.Context, in RefreshInput) (string, error) {
	target, err := ResolveURL(in.BaseURL, r.path)
	if err != nil {
		return "", fmt.Errorf("refresh url: %w", err)
	}

	req := r.client.R().SetContext(ctx)
	for key, values := range in.Header {
		if strings.EqualFold(key, "Content-Length") {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := req.Get(target)
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("refresh request failed with status %d", resp.StatusCode())
	}

	token := gjson.GetBytes(resp.Body(), r.tokenPath)
	if !token.Exists() || token.Type != gjson.String || token.String() == "" {
		return "", fmt.Errorf("no token at %q in refresh response", r.tokenPath)
	}
	return token.String(), nil
}

// ResolveURL joins a base URL and a path. Absolute targets are returned as is.
func ResolveURL(base, target string) (string, error) {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return target, nil
	}
	if strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("no base URL for relative path %q", target)
	}
	if target == "" {
		return base, nil
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/"), nil
}

