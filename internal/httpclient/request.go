package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/authrelay/internal/auth"
	"github.com/torosent/authrelay/internal/response"
	"github.com/torosent/authrelay/internal/session"
	"github.com/torosent/authrelay/internal/tracing"
)

// FilePart is one file field of a multipart upload.
type FilePart struct {
	Field string
	Path  string
}

// RequestConfig describes one call. Its headers are merged over the client defaults
// key by key; a relative URL is resolved against the session's app URL.
type RequestConfig struct {
	Method  string
	URL     string
	Params  url.Values
	Data    any
	Headers map[string]string
	Files   []FilePart
	Form    map[string]string
	Timeout time.Duration
}

type preparedRequest struct {
	method  string
	target  string
	baseURL string
	params  url.Values
	body    any
	header  http.Header
	files   []FilePart
	form    map[string]string
	timeout time.Duration
	upload  bool
	retried bool
}

// Request sends cfg with the session token, refreshing and replaying once if the
// server rejects it. HTTP and transport failures are reported in the envelope; the
// error is non-nil only for an unusable cfg or ErrSessionExpired. With checkOut set, a
// failure whose code equals the push-out code logs the session out.
func (c *Client) Request(ctx context.Context, cfg RequestConfig, checkOut bool) (*response.Raw, error) {
	st := c.store.State()
	p, err := c.prepare(st, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, status := c.exchange(ctx, p)

	if isAuthFailure(status) && !p.retried {
		p.retried = true
		if token := c.refresh(ctx, p); token != "" {
			c.store.SetToken(token)
			p.header.Set(c.provider.HeaderName(), c.provider.Format(token))
			if p.upload {
				p.header.Set(c.uploadTokenHeader, token)
			}
			raw, status = c.exchange(ctx, p)
		} else if err := ctx.Err(); err != nil {
			// the caller gave up while waiting on the refresh
			raw, status = response.FromError(err), 0
		}
	}

	if c.collector != nil {
		c.collector.RecordRequest(time.Since(start), status, failureKind(raw))
	}

	if checkOut && !raw.OK && raw.Code == c.pushOutCode {
		c.logger.Warn("session pushed out", "code", raw.Code, "method", p.method, "url", p.target)
		c.store.Logout(fmt.Sprintf("%s %s returned code %d", p.method, p.target, raw.Code))
		return nil, ErrSessionExpired
	}
	return raw, nil
}

func (c *Client) prepare(st session.State, cfg RequestConfig) (*preparedRequest, error) {
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}
	if strings.ContainsAny(method, " \t\r\n") {
		return nil, fmt.Errorf("invalid method %q", cfg.Method)
	}

	target, err := auth.ResolveURL(st.AppURL, strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(target); err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", target, err)
	}

	p := &preparedRequest{
		method:  method,
		target:  target,
		baseURL: st.AppURL,
		params:  cfg.Params,
		files:   cfg.Files,
		form:    cfg.Form,
		timeout: cfg.Timeout,
		upload:  len(cfg.Files) > 0,
	}
	if p.timeout <= 0 {
		p.timeout = c.timeout
	}

	for _, f := range cfg.Files {
		if strings.TrimSpace(f.Field) == "" || strings.TrimSpace(f.Path) == "" {
			return nil, fmt.Errorf("file part needs a field and a path, got %q=%q", f.Field, f.Path)
		}
	}

	if p.body, err = normalizeBody(cfg.Data); err != nil {
		return nil, err
	}
	if p.upload && p.body != nil {
		return nil, fmt.Errorf("a multipart upload cannot also carry a %T body", cfg.Data)
	}

	p.header = http.Header{}
	if !p.upload {
		p.header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		p.header.Set(k, v)
	}
	// both token headers come from the st snapshot
	if st.Token != "" {
		p.header.Set(c.provider.HeaderName(), c.provider.Format(st.Token))
		if p.upload {
			p.header.Set(c.uploadTokenHeader, st.Token)
		}
	}
	override, err := canonicalHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}
	for k, v := range override {
		p.header.Set(k, v)
	}
	return p, nil
}

// normalizeBody turns BodySource payloads into bytes so a replay can resend them.
func normalizeBody(data any) (any, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case BodySource:
		b, err := readBody(v)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if b == nil {
			return nil, nil
		}
		return b, nil
	case json.RawMessage:
		return []byte(v), nil
	default:
		return data, nil
	}
}

// exchange sends one attempt (plus transport retries) and normalizes the outcome. The
// returned status is 0 when no HTTP response arrived.
func (c *Client) exchange(ctx context.Context, p *preparedRequest) (*response.Raw, int) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response.FromError(err), 0
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ctx, span := tracing.StartRequestSpan(ctx, c.tracing.Tracer(), p.method, p.target)

	header := p.header.Clone()
	header.Set(requestIDHeader, ulid.Make().String())
	c.tracing.InjectHTTPHeaders(ctx, header)

	req := c.rc.R().SetContext(ctx)
	req.Header = header
	if len(p.params) > 0 {
		req.SetQueryParamsFromValues(p.params)
	}
	if p.upload {
		for _, f := range p.files {
			req.SetFile(f.Field, f.Path)
		}
		if len(p.form) > 0 {
			req.SetFormData(p.form)
		}
	} else if p.body != nil {
		req.SetBody(p.body)
	}

	resp, err := req.Execute(p.method, p.target)
	if err != nil {
		tracing.EndSpan(span, 0, err)
		c.logger.Debug("request failed", "method", p.method, "url", p.target, "request_id", header.Get(requestIDHeader), "error", err)
		return response.FromError(err), 0
	}

	status := resp.StatusCode()
	tracing.EndSpan(span, status, nil)
	c.logger.Debug("request completed", "method", p.method, "url", p.target, "request_id", header.Get(requestIDHeader), "status", status, "duration", resp.Time())
	return response.FromHTTP(status, resp.Body()), status
}

// refresh asks the refresher for a new token through the gate. It returns "" when the
// session cannot be renewed.
func (c *Client) refresh(ctx context.Context, p *preparedRequest) string {
	if c.refresher == nil {
		return ""
	}
	in := auth.RefreshInput{BaseURL: p.baseURL, Header: p.header.Clone()}
	token, err := c.gate.Do(ctx, func(ctx context.Context) (string, error) {
		c.logger.Info("refreshing session token", "url", p.target)
		token, err := c.refresher.Refresh(ctx, in)
		if c.collector != nil {
			c.collector.RecordRefresh(err == nil && token != "")
		}
		return token, err
	})
	if err != nil {
		c.logger.Warn("token refresh failed", "error", err)
		return ""
	}
	return token
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func failureKind(raw *response.Raw) string {
	if raw.OK {
		return ""
	}
	switch raw.Status {
	case 0:
		switch raw.Code {
		case response.CodeCanceled:
			return "canceled"
		case response.CodeTimeout:
			return "timeout"
		default:
			return "network"
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return "auth"
	default:
		return "http"
	}
}

func canonicalHeaders(in map[string]string) (map[string]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n :") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		out[canonicalKey] = value
	}
	return out, nil
}
