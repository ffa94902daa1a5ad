package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type OutputFormat string

const (
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
	OutputTable OutputFormat = "table"
)

type Config struct {
	AppURL            string            `mapstructure:"app_url"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	TokenHeader       string            `mapstructure:"token_header"`
	TokenScheme       string            `mapstructure:"token_scheme"`
	UploadTokenHeader string            `mapstructure:"upload_token_header"`
	PushOutCode       int               `mapstructure:"push_out_code"`
	Headers           map[string]string `mapstructure:"headers"`
	Retries           int               `mapstructure:"retries"`
	RetryWait         time.Duration     `mapstructure:"retry_wait"`
	RetryMaxWait      time.Duration     `mapstructure:"retry_max_wait"`
	RateLimit         int               `mapstructure:"rate_limit"`
	SessionFile       string            `mapstructure:"session_file"`
	Output            OutputFormat      `mapstructure:"output"`
	LogLevel          string            `mapstructure:"log_level"`
	LogFormat         string            `mapstructure:"log_format"`
	Refresh           RefreshConfig     `mapstructure:"refresh"`
	Tracing           TracingConfig     `mapstructure:"tracing"`
	ConfigFile        string            `mapstructure:"-"`
	EnvFile           string            `mapstructure:"-"`
}

type RefreshStrategy string

const (
	RefreshNone                    RefreshStrategy = "none"
	RefreshEndpoint                RefreshStrategy = "endpoint"
	RefreshOAuth2ClientCredentials RefreshStrategy = "oauth2_client_credentials"
	RefreshOAuth2Password          RefreshStrategy = "oauth2_password"
)

// RefreshConfig selects how an expired session token is replaced.
type RefreshConfig struct {
	Strategy     RefreshStrategy `mapstructure:"strategy"`
	Path         string          `mapstructure:"path"`       // endpoint: path under app_url
	TokenPath    string          `mapstructure:"token_path"` // endpoint: gjson path of the token in the body
	TokenURL     string          `mapstructure:"token_url"`
	ClientID     string          `mapstructure:"client_id"`
	ClientSecret string          `mapstructure:"client_secret"`
	Username     string          `mapstructure:"username"`
	Password     string          `mapstructure:"password"`
	Scopes       []string        `mapstructure:"scopes"`
	Timeout      time.Duration   `mapstructure:"timeout"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
	Propagate   *bool   `mapstructure:"propagate"` // nil: propagate whenever an endpoint is set
}

// Enabled reports whether spans should be created at all.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || (t.Propagate != nil && *t.Propagate)
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return strings.TrimSpace(t.Endpoint) != ""
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		TokenHeader:       "authorization",
		UploadTokenHeader: "token",
		PushOutCode:       401,
		Headers:           map[string]string{},
		RetryWait:         100 * time.Millisecond,
		RetryMaxWait:      5 * time.Second,
		Output:            OutputJSON,
		LogLevel:          "info",
		LogFormat:         "text",
		Refresh: RefreshConfig{
			Strategy:  RefreshEndpoint,
			Path:      "/auth/refresh-token",
			TokenPath: "data",
			Timeout:   30 * time.Second,
		},
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.AppURL) != "" {
		if err := validateAbsoluteURL(c.AppURL); err != nil {
			issues = append(issues, fmt.Sprintf("app_url: %v", err))
		}
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if strings.TrimSpace(c.TokenHeader) == "" {
		issues = append(issues, "token_header is required")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if c.RetryWait < 0 || c.RetryMaxWait < 0 {
		issues = append(issues, "retry_wait and retry_max_wait must be >= 0")
	}
	if c.RetryMaxWait > 0 && c.RetryWait > c.RetryMaxWait {
		issues = append(issues, "retry_wait must not exceed retry_max_wait")
	}
	if c.RateLimit < 0 {
		issues = append(issues, "rate_limit must be >= 0")
	}
	switch c.Output {
	case OutputJSON, OutputYAML, OutputTable:
	default:
		issues = append(issues, fmt.Sprintf("output: must be 'json', 'yaml' or 'table', got %q", c.Output))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log_format: must be 'text' or 'json', got %q", c.LogFormat))
	}

	issues = append(issues, validateRefresh(c.Refresh)...)
	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateRefresh(r RefreshConfig) []string {
	var issues []string
	switch r.Strategy {
	case RefreshNone:
	case RefreshEndpoint, "":
		if strings.TrimSpace(r.Path) == "" {
			issues = append(issues, "refresh: path is required for endpoint strategy")
		}
	case RefreshOAuth2ClientCredentials:
		if r.TokenURL == "" {
			issues = append(issues, "refresh: token_url is required for oauth2_client_credentials")
		}
		if r.ClientID == "" {
			issues = append(issues, "refresh: client_id is required for oauth2_client_credentials")
		}
		if r.ClientSecret == "" {
			issues = append(issues, "refresh: client_secret is required for oauth2_client_credentials")
		}
	case RefreshOAuth2Password:
		if r.TokenURL == "" {
			issues = append(issues, "refresh: token_url is required for oauth2_password")
		}
		if r.ClientID == "" {
			issues = append(issues, "refresh: client_id is required for oauth2_password")
		}
		if r.Username == "" {
			issues = append(issues, "refresh: username is required for oauth2_password")
		}
		if r.Password == "" {
			issues = append(issues, "refresh: password is required for oauth2_password")
		}
	default:
		issues = append(issues, fmt.Sprintf("refresh: unsupported strategy %q", r.Strategy))
	}
	if r.TokenURL != "" {
		if err := validateAbsoluteURL(r.TokenURL); err != nil {
			issues = append(issues, fmt.Sprintf("refresh: token_url: %v", err))
		}
	}
	if r.Timeout < 0 {
		issues = append(issues, "refresh: timeout must be >= 0")
	}
	return issues
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	return issues
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
