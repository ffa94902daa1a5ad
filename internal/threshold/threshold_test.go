package threshold

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/authrelay/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "latency percentile",
			input: "latency:p99 < 500",
			want:  Threshold{Metric: "latency", Aggregate: "p99", Operator: "<", Value: 500, Raw: "latency:p99 < 500"},
		},
		{
			name:  "failure rate without spaces",
			input: "failed:rate<=0.01",
			want:  Threshold{Metric: "failed", Aggregate: "rate", Operator: "<=", Value: 0.01, Raw: "failed:rate<=0.01"},
		},
		{
			name:  "refresh count",
			input: "  refreshes:count == 1 ",
			want:  Threshold{Metric: "refreshes", Aggregate: "count", Operator: "==", Value: 1, Raw: "refreshes:count == 1"},
		},
		{name: "empty", input: "", wantError: true},
		{name: "unknown metric", input: "bandwidth:avg < 1", wantError: true},
		{name: "aggregate not valid for metric", input: "calls:p99 < 1", wantError: true},
		{name: "bad operator", input: "latency:p99 != 1", wantError: true},
		{name: "bad value", input: "latency:p99 < 1.2.3", wantError: true},
		{name: "garbage", input: "p99 under 500", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Parse(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultipleCollectsErrors(t *testing.T) {
	_, err := ParseMultiple([]string{"latency:p99 < 500", "nope", "calls:bogus > 1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "threshold[1]") || !strings.Contains(err.Error(), "threshold[2]") {
		t.Errorf("error should name every bad entry: %v", err)
	}

	got, err := ParseMultiple(nil)
	if err != nil || got != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v", got, err)
	}
}

func TestEvaluate(t *testing.T) {
	c := metrics.NewCollector()
	for i := 0; i < 9; i++ {
		c.RecordRequest(20*time.Millisecond, 200, "")
	}
	c.RecordRequest(400*time.Millisecond, 503, "http")
	c.RecordRefresh(true)
	stats := c.Stats(time.Second)

	thresholds, err := ParseMultiple([]string{
		"latency:max < 1000",
		"latency:p50 < 100",
		"failed:rate < 0.05",
		"failed:count <= 1",
		"calls:count == 10",
		"refreshes:count <= 1",
		"refreshes:failed == 0",
	})
	if err != nil {
		t.Fatal(err)
	}

	results := Evaluate(thresholds, stats)
	if len(results) != len(thresholds) {
		t.Fatalf("got %d results, want %d", len(results), len(thresholds))
	}
	failed := Failed(results)
	if len(failed) != 1 {
		t.Fatalf("expected only the failure rate to fail, got %+v", failed)
	}
	if failed[0].Threshold.Raw != "failed:rate < 0.05" {
		t.Errorf("unexpected failure: %s", failed[0].Message)
	}
	if failed[0].Actual != 0.1 {
		t.Errorf("actual = %v, want 0.1", failed[0].Actual)
	}
	if !strings.HasPrefix(failed[0].Message, "✗") {
		t.Errorf("message = %q", failed[0].Message)
	}
}

func TestEvaluateEmptyRun(t *testing.T) {
	th, _ := Parse("failed:rate < 0.5")
	results := Evaluate([]Threshold{th}, metrics.Stats{})
	if !results[0].Pass {
		t.Error("a run with no calls has no failure rate")
	}
	if Evaluate(nil, metrics.Stats{}) != nil {
		t.Error("no thresholds should yield nil")
	}
}
