package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers the global flags on a cobra command so every subcommand inherits them.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.PersistentFlags())
}

func configureFlags(flags *pflag.FlagSet) {
	// Sources
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.String("env-file", "", "Path to a .env file (defaults to ./.env when present)")

	// Session and auth
	flags.String("app-url", "", "Base URL of the API; overrides the URL stored in the session")
	flags.String("session-file", "", "Path of the persisted session (default $HOME/.authrelay/session.yaml)")
	flags.String("token-header", "authorization", "Header that carries the session token")
	flags.String("token-scheme", "", "Optional scheme prefix for the token header, e.g. Bearer")
	flags.Int("push-out-code", 401, "Result code that ends the session")
	flags.String("refresh-strategy", string(RefreshEndpoint), "Token refresh strategy: endpoint, oauth2_client_credentials, oauth2_password or none")
	flags.String("refresh-path", "/auth/refresh-token", "Refresh endpoint path under the app URL")

	// Transport
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Int("retries", 0, "Transport retries for 429, 5xx and connection errors")
	flags.Int("rate-limit", 0, "Client-side requests per second limit (0 means unlimited)")

	// Output
	flags.StringP("output", "o", string(OutputJSON), "Response output format: json, yaml or table")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")

	// Tracing
	flags.String("trace-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("trace-propagate", false, "Inject W3C trace context headers into requests")
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	strFlags := []struct {
		name string
		dst  *string
	}{
		{"app-url", &cfg.AppURL},
		{"session-file", &cfg.SessionFile},
		{"token-header", &cfg.TokenHeader},
		{"token-scheme", &cfg.TokenScheme},
		{"refresh-path", &cfg.Refresh.Path},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
		{"trace-endpoint", &cfg.Tracing.Endpoint},
		{"trace-protocol", &cfg.Tracing.Protocol},
	}
	for _, f := range strFlags {
		if !flags.Changed(f.name) {
			continue
		}
		val, err := flags.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = strings.TrimSpace(val)
	}

	intFlags := []struct {
		name string
		dst  *int
	}{
		{"push-out-code", &cfg.PushOutCode},
		{"retries", &cfg.Retries},
		{"rate-limit", &cfg.RateLimit},
	}
	for _, f := range intFlags {
		if !flags.Changed(f.name) {
			continue
		}
		val, err := flags.GetInt(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	if flags.Changed("timeout") {
		val, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if flags.Changed("output") {
		val, err := flags.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if flags.Changed("refresh-strategy") {
		val, err := flags.GetString("refresh-strategy")
		if err != nil {
			return err
		}
		cfg.Refresh.Strategy = RefreshStrategy(strings.ToLower(strings.TrimSpace(val)))
	}
	if flags.Changed("trace-insecure") {
		val, err := flags.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if flags.Changed("trace-propagate") {
		val, err := flags.GetBool("trace-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	vals, err := flags.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		hdrs, err := ParseKeyValues(vals)
		if err != nil {
			return fmt.Errorf("header: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}
	return nil
}

// ParseKeyValues parses key=value entries. Keys must be non-empty.
func ParseKeyValues(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, val, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("must be in key=value format: %s", entry)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("key cannot be empty: %s", entry)
		}
		out[key] = strings.TrimSpace(val)
	}
	return out, nil
}
