package metrics

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestCollectorStats(t *testing.T) {
	c := NewCollector()
	c.RecordRequest(10*time.Millisecond, 200, "")
	c.RecordRequest(20*time.Millisecond, 200, "")
	c.RecordRequest(30*time.Millisecond, 401, "http")
	c.RecordRequest(5*time.Second, 0, "timeout")
	c.RecordRefresh(true)
	c.RecordRefresh(false)

	stats := c.Stats(2 * time.Second)

	if stats.Total != 4 || stats.Successes != 2 || stats.Failures != 2 {
		t.Fatalf("counts = %d/%d/%d, want 4/2/2", stats.Total, stats.Successes, stats.Failures)
	}
	if stats.Refreshes != 2 || stats.FailedRefreshes != 1 {
		t.Errorf("refreshes = %d/%d, want 2/1", stats.Refreshes, stats.FailedRefreshes)
	}
	if stats.MinLatency != 10*time.Millisecond || stats.MaxLatency != 5*time.Second {
		t.Errorf("min/max = %v/%v", stats.MinLatency, stats.MaxLatency)
	}
	if stats.RequestsPerSec != 2 {
		t.Errorf("RequestsPerSec = %v, want 2", stats.RequestsPerSec)
	}
	if stats.StatusBuckets["200"] != 2 || stats.StatusBuckets["401"] != 1 || stats.StatusBuckets["none"] != 1 {
		t.Errorf("StatusBuckets = %v", stats.StatusBuckets)
	}
	if stats.FailureKinds["http"] != 1 || stats.FailureKinds["timeout"] != 1 {
		t.Errorf("FailureKinds = %v", stats.FailureKinds)
	}
	if stats.P50Latency < 10*time.Millisecond || stats.P50Latency > 31*time.Millisecond {
		t.Errorf("P50Latency = %v, want within recorded range", stats.P50Latency)
	}
}

func TestCollectorEmpty(t *testing.T) {
	stats := NewCollector().Stats(0)
	if stats.Total != 0 || stats.MeanLatency != 0 || stats.RequestsPerSec != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) == "" {
		t.Error("empty JSON")
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordRequest(time.Millisecond, 200, "")
		}()
	}
	wg.Wait()
	if got := c.Stats(time.Second).Total; got != 100 {
		t.Errorf("Total = %d, want 100", got)
	}
}

func TestFlattenStatusBuckets(t *testing.T) {
	rows := FlattenStatusBuckets(map[string]int{"500": 1, "200": 5, "401": 1})
	if len(rows) != 3 {
		t.Fatalf("len = %d", len(rows))
	}
	if rows[0].Status != "200" || rows[1].Status != "401" || rows[2].Status != "500" {
		t.Errorf("order = %+v", rows)
	}
	if FlattenStatusBuckets(nil) != nil {
		t.Error("nil buckets should flatten to nil")
	}
}
