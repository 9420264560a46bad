package ui

import (
	"sync"
	"time"
)

// frameScheduler coalesces UI updates and caps draw rate. Only the latest
// update per id survives until the next frame; a frame runs its batch in
// the order ids were first scheduled, followed by one redraw.
type frameScheduler struct {
	queue        func(func())
	order        []string
	pending      map[string]func()
	mu           sync.Mutex
	quit         chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
	startOnce    sync.Once
	frameTime    time.Duration
	drainTimeout time.Duration
	observeDelay func(time.Duration)
}

// newFrameScheduler hands each batch to queue, normally
// Application.QueueUpdateDraw. A nil queue runs batches inline.
func newFrameScheduler(queue func(func()), targetFPS int, drainTimeout time.Duration, observeDelay func(time.Duration)) *frameScheduler {
	if targetFPS <= 0 {
		targetFPS = 30
	}
	if drainTimeout <= 0 {
		drainTimeout = 100 * time.Millisecond
	}
	if queue == nil {
		queue = func(fn func()) { fn() }
	}
	return &frameScheduler{
		queue:        queue,
		pending:      make(map[string]func()),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		frameTime:    time.Second / time.Duration(targetFPS),
		drainTimeout: drainTimeout,
		observeDelay: observeDelay,
	}
}

func (f *frameScheduler) Start() {
	f.startOnce.Do(func() { go f.run() })
}

// Stop flushes what is pending (bounded by the drain timeout) and stops
// the frame loop. It is safe to call more than once.
func (f *frameScheduler) Stop() {
	f.stopOnce.Do(func() { close(f.quit) })
	// A scheduler that never started has no loop to close done.
	f.startOnce.Do(func() { close(f.done) })
	select {
	case <-f.done:
	case <-time.After(f.drainTimeout):
	}
}

func (f *frameScheduler) Schedule(id string, fn func()) {
	if f == nil || fn == nil {
		return
	}
	f.mu.Lock()
	if _, ok := f.pending[id]; !ok {
		f.order = append(f.order, id)
	}
	f.pending[id] = fn
	f.mu.Unlock()
}

// Pending reports how many ids wait for the next frame.
func (f *frameScheduler) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *frameScheduler) run() {
	defer close(f.done)

	ticker := time.NewTicker(f.frameTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.flush()
		case <-f.quit:
			f.flushBounded(f.drainTimeout)
			return
		}
	}
}

func (f *frameScheduler) flush() {
	f.flushBounded(0)
}

func (f *frameScheduler) flushBounded(max time.Duration) {
	deadline := time.Time{}
	if max > 0 {
		deadline = time.Now().Add(max)
	}
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return
		}
		f.mu.Lock()
		if len(f.pending) == 0 {
			f.mu.Unlock()
			return
		}
		batch := make([]func(), 0, len(f.order))
		for _, id := range f.order {
			batch = append(batch, f.pending[id])
			delete(f.pending, id)
		}
		f.order = f.order[:0]
		f.mu.Unlock()

		queuedAt := time.Now()
		f.queue(func() {
			for _, fn := range batch {
				fn()
			}
			if f.observeDelay != nil {
				f.observeDelay(time.Since(queuedAt))
			}
		})
	}
}
