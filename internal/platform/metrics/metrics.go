package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu       sync.Mutex
	counters map[string]*uint64
}

func New() *Collector {
	return &Collector{counters: map[string]*uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// Inc bumps a named domain counter such as "sso_redeemed" or "job_failed".
func (c *Collector) Inc(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	ctr, ok := c.counters[name]
	if !ok {
		ctr = new(uint64)
		c.counters[name] = ctr
	}
	c.mu.Unlock()
	atomic.AddUint64(ctr, 1)
}

func (c *Collector) Count(name string) uint64 {
	c.mu.Lock()
	ctr, ok := c.counters[name]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return atomic.LoadUint64(ctr)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	names := make([]string, 0, len(c.counters))
	for name := range c.counters {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)
	counters := make(map[string]uint64, len(names))
	for _, name := range names {
		counters[name] = c.Count(name)
	}

	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"counters":         counters,
	}
}
