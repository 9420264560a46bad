package ui

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// LatencyTracker keeps a bounded ring of durations for percentile estimates.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	count   int
	idx     int
}

func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 256
	}
	return &LatencyTracker{samples: make([]time.Duration, size)}
}

func (t *LatencyTracker) Observe(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.samples[t.idx] = d
	t.idx = (t.idx + 1) % len(t.samples)
	if t.count < len(t.samples) {
		t.count++
	}
	t.mu.Unlock()
}

type LatencySnapshot struct {
	P50 time.Duration
	P99 time.Duration
	N   int
}

func (t *LatencyTracker) Snapshot() LatencySnapshot {
	if t == nil {
		return LatencySnapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return LatencySnapshot{}
	}
	values := make([]time.Duration, t.count)
	copy(values, t.samples[:t.count])
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	p50 := values[t.count/2]
	p99 := values[int(float64(t.count-1)*0.99)]
	return LatencySnapshot{P50: p50, P99: p99, N: t.count}
}

// Metrics tracks frame-level counters and the delay between a batch being
// queued and the UI loop applying it.
type Metrics struct {
	frameDelay *LatencyTracker
	frames     atomic.Uint64
	attached   atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{frameDelay: NewLatencyTracker(512)}
}

func (m *Metrics) ObserveFrame(d time.Duration) {
	if m == nil {
		return
	}
	m.frames.Add(1)
	m.frameDelay.Observe(d)
}

func (m *Metrics) widgetAttached(delta int64) {
	if m == nil {
		return
	}
	m.attached.Add(delta)
}

func (m *Metrics) FrameSnapshot() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{}
	}
	return m.frameDelay.Snapshot()
}

func (m *Metrics) Frames() uint64 {
	if m == nil {
		return 0
	}
	return m.frames.Load()
}

// Attached is the number of widgets currently on screen.
func (m *Metrics) Attached() int64 {
	if m == nil {
		return 0
	}
	return m.attached.Load()
}
