// Package metrics aggregates per-request latency and outcome counts for a client session.
//
// A [Collector] is safe for concurrent use; the HTTP client records every completed
// call (after any refresh-and-replay) and every token refresh:
//
//	collector := metrics.NewCollector()
//	collector.RecordRequest(latency, 200, "")
//	collector.RecordRefresh(true)
//	stats := collector.Stats(elapsed)
//
// Latency percentiles come from an HDR histogram with microsecond resolution.
package metrics
