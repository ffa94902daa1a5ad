package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "AUTHRELAY_"

const defaultEnvFile = ".env"

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// Loader merges, in increasing precedence: defaults, config file, environment
// (including a .env file) and command-line flags.
type Loader struct {
	environ func() []string
	homeDir func() (string, error)
}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ, homeDir: os.UserHomeDir}
}

// Load builds a Config from the flags registered by RegisterFlags.
func (l *Loader) Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if flags != nil {
		if path, err := flags.GetString("config"); err == nil {
			cfg.ConfigFile = strings.TrimSpace(path)
		}
		if path, err := flags.GetString("env-file"); err == nil {
			cfg.EnvFile = strings.TrimSpace(path)
		}
	}

	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		v := viper.New()
		v.SetConfigFile(cfg.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfg.ConfigFile, err)
		}
		if err := applyConfigSettings(cfg, v.AllSettings()); err != nil {
			return nil, fmt.Errorf("config %s: %w", cfg.ConfigFile, err)
		}
	}

	if err := applyConfigSettings(cfg, envSettings(l.environ())); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if flags != nil {
		if err := applyFlagOverrides(cfg, flags); err != nil {
			return nil, err
		}
	}

	cfg.AppURL = strings.TrimSpace(cfg.AppURL)
	cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(string(cfg.Output))))
	if cfg.Refresh.Strategy == "" {
		cfg.Refresh.Strategy = RefreshEndpoint
	}
	if cfg.SessionFile == "" {
		home, err := l.homeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve session file: %w", err)
		}
		cfg.SessionFile = filepath.Join(home, ".authrelay", "session.yaml")
	}
	return cfg, nil
}

// loadEnvFile loads an explicit env file, or ./.env when present. Variables that are
// already set in the process environment win.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("env file %s: %w", defaultEnvFile, err)
	}
	return nil
}

// envSettings turns AUTHRELAY_* variables into the same nested shape a config file has:
// AUTHRELAY_REFRESH_CLIENT_SECRET becomes refresh.client_secret.
func envSettings(environ []string) map[string]interface{} {
	settings := map[string]interface{}{}
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		placed := false
		for _, section := range []string{"refresh", "tracing"} {
			if rest, found := strings.CutPrefix(name, section+"_"); found {
				sub, _ := settings[section].(map[string]interface{})
				if sub == nil {
					sub = map[string]interface{}{}
					settings[section] = sub
				}
				sub[rest] = val
				placed = true
				break
			}
		}
		if !placed && !strings.HasPrefix(name, "header") {
			settings[name] = val
		}
	}
	return settings
}

// applyConfigSettings applies settings from a config file or the environment.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	strField := func(target *string, keys ...string) error {
		raw, ok := lookupSetting(settings, keys...)
		if !ok {
			return nil
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", keys[0], err)
		}
		*target = strings.TrimSpace(val)
		return nil
	}
	intField := func(target *int, keys ...string) error {
		raw, ok := lookupSetting(settings, keys...)
		if !ok {
			return nil
		}
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", keys[0], err)
		}
		*target = val
		return nil
	}

	var output, strategy string
	steps := []error{
		strField(&cfg.AppURL, "app_url", "appurl", "app-url", "base_url"),
		strField(&cfg.TokenHeader, "token_header", "tokenheader", "token-header"),
		strField(&cfg.TokenScheme, "token_scheme", "tokenscheme", "token-scheme"),
		strField(&cfg.UploadTokenHeader, "upload_token_header", "uploadtokenheader", "upload-token-header"),
		intField(&cfg.PushOutCode, "push_out_code", "pushoutcode", "push-out-code"),
		intField(&cfg.Retries, "retries"),
		intField(&cfg.RateLimit, "rate_limit", "ratelimit", "rate-limit"),
		strField(&cfg.SessionFile, "session_file", "sessionfile", "session-file"),
		strField(&output, "output"),
		strField(&cfg.LogLevel, "log_level", "loglevel", "log-level"),
		strField(&cfg.LogFormat, "log_format", "logformat", "log-format"),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	if output != "" {
		cfg.Output = OutputFormat(strings.ToLower(output))
	}

	for key, target := range map[string]*durationTarget{
		"timeout":        {&cfg.Timeout, []string{"timeout"}},
		"retry_wait":     {&cfg.RetryWait, []string{"retry_wait", "retrywait", "retry-wait"}},
		"retry_max_wait": {&cfg.RetryMaxWait, []string{"retry_max_wait", "retrymaxwait", "retry-max-wait"}},
	} {
		if err := target.apply(settings); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "refresh"); ok {
		section, err := toStringKeyMap(raw, true)
		if err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		if err := applyRefreshSettings(&cfg.Refresh, section, &strategy); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		section, err := toStringKeyMap(raw, true)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		if err := applyTracingSettings(&cfg.Tracing, section); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}
	return nil
}

type durationTarget struct {
	dst  *time.Duration
	keys []string
}

func (d *durationTarget) apply(settings map[string]interface{}) error {
	raw, ok := lookupSetting(settings, d.keys...)
	if !ok {
		return nil
	}
	val, err := asDuration(raw)
	if err != nil {
		return err
	}
	*d.dst = val
	return nil
}

func applyRefreshSettings(r *RefreshConfig, settings map[string]interface{}, strategy *string) error {
	fields := []struct {
		dst  *string
		keys []string
	}{
		{strategy, []string{"strategy", "type"}},
		{&r.Path, []string{"path"}},
		{&r.TokenPath, []string{"token_path", "tokenpath", "token-path"}},
		{&r.TokenURL, []string{"token_url", "tokenurl", "token-url"}},
		{&r.ClientID, []string{"client_id", "clientid", "client-id"}},
		{&r.ClientSecret, []string{"client_secret", "clientsecret", "client-secret"}},
		{&r.Username, []string{"username"}},
		{&r.Password, []string{"password"}},
	}
	for _, f := range fields {
		raw, ok := lookupSetting(settings, f.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.keys[0], err)
		}
		*f.dst = strings.TrimSpace(val)
	}
	if *strategy != "" {
		r.Strategy = RefreshStrategy(strings.ToLower(*strategy))
	}
	if raw, ok := lookupSetting(settings, "scopes"); ok {
		scopes, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("scopes: %w", err)
		}
		r.Scopes = scopes
	}
	timeout := durationTarget{&r.Timeout, []string{"timeout"}}
	if err := timeout.apply(settings); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	return nil
}

func applyTracingSettings(t *TracingConfig, settings map[string]interface{}) error {
	for _, f := range []struct {
		dst *string
		key string
	}{
		{&t.Endpoint, "endpoint"},
		{&t.Protocol, "protocol"},
		{&t.ServiceName, "service_name"},
	} {
		if raw, ok := lookupSetting(settings, f.key); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = strings.TrimSpace(val)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		t.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		t.Propagate = &val
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		t.SampleRate = val
	}
	return nil
}
