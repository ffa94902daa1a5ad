package metrics

import (
	"sort"
	"strconv"
)

// StatusBucket is the number of requests that ended with one HTTP status.
type StatusBucket struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// statusLabel renders 0 (no HTTP response) as "none".
func statusLabel(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

// FlattenStatusBuckets sorts by descending count, then status for stability.
func FlattenStatusBuckets(buckets map[string]int) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(buckets))
	for status, count := range buckets {
		rows = append(rows, StatusBucket{Status: status, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Status < rows[j].Status
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
