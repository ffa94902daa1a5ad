package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidateCollectsIssues(t *testing.T) {
	cfg := Default()
	cfg.AppURL = "ftp://files.example.com"
	cfg.Timeout = 0
	cfg.Retries = -1
	cfg.Output = "xml"
	cfg.Refresh.Strategy = "magic"

	err := cfg.Validate()
	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}

	issues := vErr.Issues()
	wants := []string{"app_url", "timeout must be > 0", "retries must be >= 0", "output", "unsupported strategy"}
	for _, want := range wants {
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("issues %v missing %q", issues, want)
		}
	}
}

func TestValidateRefreshStrategies(t *testing.T) {
	tests := []struct {
		name    string
		refresh RefreshConfig
		wantErr bool
	}{
		{"none", RefreshConfig{Strategy: RefreshNone}, false},
		{"endpoint without path", RefreshConfig{Strategy: RefreshEndpoint}, true},
		{"client credentials complete", RefreshConfig{
			Strategy:     RefreshOAuth2ClientCredentials,
			TokenURL:     "https://idp.example.com/token",
			ClientID:     "app",
			ClientSecret: "s3cret",
		}, false},
		{"client credentials missing secret", RefreshConfig{
			Strategy: RefreshOAuth2ClientCredentials,
			TokenURL: "https://idp.example.com/token",
			ClientID: "app",
		}, true},
		{"password grant missing user", RefreshConfig{
			Strategy: RefreshOAuth2Password,
			TokenURL: "https://idp.example.com/token",
			ClientID: "app",
			Password: "pw",
		}, true},
		{"relative token url", RefreshConfig{
			Strategy:     RefreshOAuth2ClientCredentials,
			TokenURL:     "/token",
			ClientID:     "app",
			ClientSecret: "s3cret",
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Refresh = tt.refresh
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTracing(t *testing.T) {
	cfg := Default()
	cfg.Tracing.SampleRate = 1.5
	cfg.Tracing.Protocol = "thrift"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "sample_rate") || !strings.Contains(err.Error(), "protocol") {
		t.Errorf("Validate() error = %v, want sample_rate and protocol issues", err)
	}
}

func TestValidateRetryWaitOrder(t *testing.T) {
	cfg := Default()
	cfg.RetryWait = 10 * time.Second
	cfg.RetryMaxWait = time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want retry_wait issue")
	}
}

func TestTracingEnabled(t *testing.T) {
	if (TracingConfig{}).Enabled() {
		t.Error("zero TracingConfig should be disabled")
	}
	if !(TracingConfig{Endpoint: "localhost:4317"}).Enabled() {
		t.Error("endpoint should enable tracing")
	}
	on, off := true, false
	if !(TracingConfig{Propagate: &on}).Enabled() {
		t.Error("propagation should enable tracing")
	}
	if (TracingConfig{Endpoint: "localhost:4317", Propagate: &off}).ShouldPropagate() {
		t.Error("explicit propagate=false must win")
	}
	if !(TracingConfig{Endpoint: "localhost:4317"}).ShouldPropagate() {
		t.Error("endpoint should imply propagation")
	}
}
