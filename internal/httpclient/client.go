package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/torosent/authrelay/internal/auth"
	"github.com/torosent/authrelay/internal/logging"
	"github.com/torosent/authrelay/internal/metrics"
	"github.com/torosent/authrelay/internal/session"
	"github.com/torosent/authrelay/internal/tracing"
)

const (
	// DefaultTimeout bounds one request attempt when Options.Timeout is unset.
	DefaultTimeout = 30 * time.Second
	// DefaultPushOutCode is the result code that ends the session.
	DefaultPushOutCode = http.StatusUnauthorized
	// DefaultUploadTokenHeader carries the token on multipart uploads.
	DefaultUploadTokenHeader = "token"

	requestIDHeader = "X-Request-ID"
)

// ErrSessionExpired is returned when the server pushes the session out. The store has
// already been logged out by the time a caller sees it.
var ErrSessionExpired = errors.New("session expired")

// Options configures a Client. Only Store is required.
type Options struct {
	Store *session.Store

	// Provider writes the token header. Defaults to a SessionProvider on Store.
	Provider auth.Provider
	// Refresher renews a rejected token. Nil disables refresh.
	Refresher auth.Refresher
	// Gate shares refreshes between clients. Defaults to a private gate.
	Gate *auth.Gate

	Timeout           time.Duration
	PushOutCode       int
	UploadTokenHeader string
	Headers           map[string]string

	// Transport retries for 429, 5xx and network errors.
	Retries      int
	RetryWait    time.Duration
	RetryMaxWait time.Duration

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64

	Logger     *slog.Logger
	Tracing    *tracing.Provider
	Collector  *metrics.Collector
	HTTPClient *http.Client
}

// Client sends requests on behalf of the current session. It is safe for concurrent use.
type Client struct {
	rc                *resty.Client
	store             *session.Store
	provider          auth.Provider
	refresher         auth.Refresher
	gate              *auth.Gate
	limiter           *rate.Limiter
	timeout           time.Duration
	pushOutCode       int
	uploadTokenHeader string
	headers           map[string]string
	logger            *slog.Logger
	tracing           *tracing.Provider
	collector         *metrics.Collector
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Retries < 0 {
		return nil, errors.New("retries must be non-negative")
	}
	if opts.RateLimit < 0 {
		return nil, errors.New("rate limit must be non-negative")
	}
	headers, err := canonicalHeaders(opts.Headers)
	if err != nil {
		return nil, err
	}

	c := &Client{
		store:             opts.Store,
		provider:          opts.Provider,
		refresher:         opts.Refresher,
		gate:              opts.Gate,
		timeout:           opts.Timeout,
		pushOutCode:       opts.PushOutCode,
		uploadTokenHeader: strings.TrimSpace(opts.UploadTokenHeader),
		headers:           headers,
		logger:            opts.Logger,
		tracing:           opts.Tracing,
		collector:         opts.Collector,
	}
	if c.provider == nil {
		c.provider = auth.NewSessionProvider(opts.Store, "", "")
	}
	if c.gate == nil {
		c.gate = auth.NewGate()
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.pushOutCode == 0 {
		c.pushOutCode = DefaultPushOutCode
	}
	if c.uploadTokenHeader == "" {
		c.uploadTokenHeader = DefaultUploadTokenHeader
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	c.rc = NewResty(hc, c.logger)
	if opts.Retries > 0 {
		c.rc.SetRetryCount(opts.Retries).
			AddRetryCondition(shouldRetry).
			AddRetryHook(func(resp *resty.Response, err error) {
				var attrs []any
				if resp != nil && resp.Request != nil {
					attrs = append(attrs, "attempt", resp.Request.Attempt, "url", resp.Request.URL)
				}
				if err != nil {
					attrs = append(attrs, "error", err)
				} else if resp != nil {
					attrs = append(attrs, "status", resp.StatusCode())
				}
				c.logger.Warn("retrying request", attrs...)
			})
		if opts.RetryWait > 0 {
			c.rc.SetRetryWaitTime(opts.RetryWait)
		}
		if opts.RetryMaxWait > 0 {
			c.rc.SetRetryMaxWaitTime(opts.RetryMaxWait)
		}
	}
	return c, nil
}

// Store returns the session store the client reads from.
func (c *Client) Store() *session.Store {
	return c.store
}

// Refreshes reports how many token refreshes this client's gate has run.
func (c *Client) Refreshes() int64 {
	return c.gate.Refreshes()
}

// NewResty wraps hc in a resty client that logs through logger. The client follows no
// auth logic of its own, so refreshers can share its configuration without recursing.
func NewResty(hc *http.Client, logger *slog.Logger) *resty.Client {
	if logger == nil {
		logger = logging.Discard()
	}
	return resty.NewWithClient(hc).
		SetLogger(logging.RestyLogger{L: logger})
}

// NewHTTPClient returns an http.Client with pooled keep-alive connections. Per-request
// deadlines come from the context, so timeout is usually zero.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// shouldRetry retries throttling, server errors and transport failures. Auth failures
// belong to the refresh path and are never retried here.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500
}
