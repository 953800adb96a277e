package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollectorRecord(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 20*time.Millisecond)
	c.Record(429, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap["requestsTotal"] != uint64(3) {
		t.Fatalf("expected 3 requests, got %v", snap["requestsTotal"])
	}
	if snap["errorsTotal"] != uint64(1) {
		t.Fatalf("expected 1 error, got %v", snap["errorsTotal"])
	}
	if snap["rateLimitedTotal"] != uint64(1) {
		t.Fatalf("expected 1 rate limited, got %v", snap["rateLimitedTotal"])
	}
	if snap["avgDurationMs"] != float64(20) {
		t.Fatalf("expected avg 20ms, got %v", snap["avgDurationMs"])
	}
}

func TestCollectorCounters(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc("sso_redeemed")
		}()
	}
	wg.Wait()
	c.Inc("job_failed")

	if got := c.Count("sso_redeemed"); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	if got := c.Count("missing"); got != 0 {
		t.Fatalf("expected 0 for unknown counter, got %d", got)
	}
	counters, ok := c.Snapshot()["counters"].(map[string]uint64)
	if !ok {
		t.Fatalf("snapshot counters missing")
	}
	if counters["job_failed"] != 1 {
		t.Fatalf("expected job_failed 1, got %d", counters["job_failed"])
	}
}

func TestNilCollectorInc(t *testing.T) {
	var c *Collector
	c.Inc("ignored")
}
