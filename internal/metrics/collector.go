package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-request metrics in a thread-safe manner.
type Collector struct {
	mu              sync.Mutex
	hist            *hdrhistogram.Histogram
	successes       int64
	failures        int64
	minLatency      time.Duration
	maxLatency      time.Duration
	sumLatency      time.Duration
	statuses        map[string]int64
	failuresByKind  map[string]int64
	refreshes       int64
	failedRefreshes int64
	start           time.Time
}

// Stats represents aggregated metrics.
type Stats struct {
	Total           int64         `json:"total"`
	Successes       int64         `json:"successes"`
	Failures        int64         `json:"failures"`
	Refreshes       int64         `json:"refreshes"`
	FailedRefreshes int64         `json:"failed_refreshes"`
	MinLatency      time.Duration `json:"-"`
	MaxLatency      time.Duration `json:"-"`
	MeanLatency     time.Duration `json:"-"`
	P50Latency      time.Duration `json:"-"`
	P90Latency      time.Duration `json:"-"`
	P99Latency      time.Duration `json:"-"`
	Duration        time.Duration `json:"-"`
	RequestsPerSec  float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64        `json:"min_latency_ms"`
	MaxLatencyMs  float64        `json:"max_latency_ms"`
	MeanLatencyMs float64        `json:"mean_latency_ms"`
	P50LatencyMs  float64        `json:"p50_latency_ms"`
	P90LatencyMs  float64        `json:"p90_latency_ms"`
	P99LatencyMs  float64        `json:"p99_latency_ms"`
	DurationMs    float64        `json:"duration_ms"`
	StatusBuckets map[string]int `json:"status_buckets,omitempty"`
	FailureKinds  map[string]int `json:"failure_kinds,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:           h,
		statuses:       make(map[string]int64),
		failuresByKind: make(map[string]int64),
		start:          time.Now(),
	}
}

// Start resets the reference time used by Elapsed.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Elapsed returns the time since the collector was created or last started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// RecordRequest records one finished call. status is the final HTTP status (0 when no
// response arrived); failure is empty for a successful call, otherwise a short kind
// such as "http" or "timeout".
func (c *Collector) RecordRequest(latency time.Duration, status int, failure string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency
	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	c.statuses[statusLabel(status)]++
	if failure == "" {
		c.successes++
		return
	}
	c.failures++
	c.failuresByKind[failure]++
}

// RecordRefresh counts one token refresh attempt.
func (c *Collector) RecordRefresh(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	if !ok {
		c.failedRefreshes++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:           total,
		Successes:       c.successes,
		Failures:        c.failures,
		Refreshes:       c.refreshes,
		FailedRefreshes: c.failedRefreshes,
		MinLatency:      c.minLatency,
		MaxLatency:      c.maxLatency,
	}
	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = toMillis(stats.MinLatency)
	stats.MaxLatencyMs = toMillis(stats.MaxLatency)
	stats.MeanLatencyMs = toMillis(stats.MeanLatency)
	stats.P50LatencyMs = toMillis(stats.P50Latency)
	stats.P90LatencyMs = toMillis(stats.P90Latency)
	stats.P99LatencyMs = toMillis(stats.P99Latency)
	stats.Duration = elapsed
	stats.DurationMs = toMillis(elapsed)

	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}
	stats.StatusBuckets = copyCounts(c.statuses)
	stats.FailureKinds = copyCounts(c.failuresByKind)
	return stats
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func copyCounts(in map[string]int64) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = int(v)
	}
	return out
}
