// Package ratelimit throttles repeated log lines, such as a panel whose
// fetch fails on every 200ms tick.
package ratelimit

import (
	"sync/atomic"
	"time"
)

// Counter tracks how often an event occurred and when it was last reported.
// It is safe for concurrent use.
type Counter struct {
	interval   time.Duration
	now        func() time.Time
	lastLog    atomic.Int64
	total      atomic.Uint64
	suppressed atomic.Uint64
}

// NewCounter constructs a Counter that allows a report at most once per interval.
// A zero or negative interval disables throttling (always reports).
func NewCounter(interval time.Duration) *Counter {
	return &Counter{interval: interval, now: time.Now}
}

// Inc records one occurrence. It returns the total count, the number of
// occurrences swallowed since the previous report, and whether this one may
// be reported.
func (c *Counter) Inc() (total uint64, suppressed uint64, ok bool) {
	if c == nil {
		return 0, 0, false
	}
	total = c.total.Add(1)
	if c.interval <= 0 {
		return total, 0, true
	}
	now := c.now().UnixNano()
	last := c.lastLog.Load()
	if last != 0 && now-last < c.interval.Nanoseconds() {
		c.suppressed.Add(1)
		return total, 0, false
	}
	if c.lastLog.CompareAndSwap(last, now) {
		return total, c.suppressed.Swap(0), true
	}
	c.suppressed.Add(1)
	return total, 0, false
}

// Reset clears the throttle window so the next occurrence reports
// immediately, e.g. after a panel recovers.
func (c *Counter) Reset() {
	if c == nil {
		return
	}
	c.lastLog.Store(0)
	c.suppressed.Store(0)
}

// Total returns the number of occurrences recorded so far.
func (c *Counter) Total() uint64 {
	if c == nil {
		return 0
	}
	return c.total.Load()
}
