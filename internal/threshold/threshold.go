// Package threshold checks a finished run's statistics against pass/fail assertions
// such as "latency:p99 < 500" or "refreshes:count <= 1".
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/authrelay/internal/metrics"
)

// Metric names accepted by Parse.
const (
	MetricLatency   = "latency"   // milliseconds
	MetricFailed    = "failed"    // failed calls
	MetricCalls     = "calls"     // all calls
	MetricRefreshes = "refreshes" // token refreshes
)

// Threshold is one assertion on a run.
type Threshold struct {
	Metric    string
	Aggregate string
	Operator  string
	Value     float64
	Raw       string
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

var aggregates = map[string][]string{
	MetricLatency:   {"p50", "p90", "p99", "avg", "min", "max"},
	MetricFailed:    {"count", "rate"},
	MetricCalls:     {"count", "rate"},
	MetricRefreshes: {"count", "failed"},
}

// Parse reads "metric:aggregate operator value".
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	m := thresholdPattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'latency:p99 < 500')", s)
	}
	metric, aggregate, operator := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", m[4], err)
	}

	allowed, ok := aggregates[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, failed, calls, refreshes)", metric)
	}
	if !contains(allowed, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(allowed, ", "))
	}
	if !contains([]string{"<", "<=", ">", ">=", "=="}, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every entry and reports all failures at once.
func ParseMultiple(entries []string) ([]Threshold, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	out := make([]Threshold, 0, len(entries))
	var problems []string
	for i, s := range entries {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		out = append(out, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return out, nil
}

// Evaluate checks each threshold against stats.
func Evaluate(thresholds []Threshold, stats metrics.Stats) []Result {
	if len(thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(thresholds))
	for _, t := range thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Pass {
			failed = append(failed, r)
		}
	}
	return failed
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual := extract(t, stats)
	pass := compare(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// extract assumes t came from Parse.
func extract(t Threshold, stats metrics.Stats) float64 {
	switch t.Metric {
	case MetricLatency:
		switch t.Aggregate {
		case "p50":
			return stats.P50LatencyMs
		case "p90":
			return stats.P90LatencyMs
		case "p99":
			return stats.P99LatencyMs
		case "avg":
			return stats.MeanLatencyMs
		case "min":
			return stats.MinLatencyMs
		default:
			return stats.MaxLatencyMs
		}
	case MetricFailed:
		if t.Aggregate == "count" {
			return float64(stats.Failures)
		}
		if stats.Total == 0 {
			return 0
		}
		return float64(stats.Failures) / float64(stats.Total)
	case MetricCalls:
		if t.Aggregate == "count" {
			return float64(stats.Total)
		}
		return stats.RequestsPerSec
	default:
		if t.Aggregate == "failed" {
			return float64(stats.FailedRefreshes)
		}
		return float64(stats.Refreshes)
	}
}

func compare(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
