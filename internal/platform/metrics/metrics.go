package metrics

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Collector keeps coarse request counters for the metricsz endpoint. Plain
// atomics, no histogram; latency is reported as a running average.
type Collector struct {
	started time.Time

	requests     atomic.Uint64
	clientErrors atomic.Uint64
	serverErrors atomic.Uint64
	throttled    atomic.Uint64
	durationMs   atomic.Uint64
}

func New() *Collector {
	return &Collector{started: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	c.durationMs.Add(uint64(duration.Milliseconds()))
	switch {
	case status == http.StatusTooManyRequests:
		c.throttled.Add(1)
	case status >= 500:
		c.serverErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	requests := c.requests.Load()
	var avg float64
	if requests > 0 {
		avg = float64(c.durationMs.Load()) / float64(requests)
	}
	return map[string]any{
		"uptimeSec":         int64(time.Since(c.started).Seconds()),
		"requestsTotal":     requests,
		"clientErrorsTotal": c.clientErrors.Load(),
		"serverErrorsTotal": c.serverErrors.Load(),
		"throttledTotal":    c.throttled.Load(),
		"avgDurationMs":     avg,
	}
}
