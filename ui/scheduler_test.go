package ui

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFrameSchedulerCoalescesLatestPerID(t *testing.T) {
	var frames int
	f := newFrameScheduler(func(fn func()) { frames++; fn() }, 60, 50*time.Millisecond, nil)

	var seq []string
	f.Schedule("pane-a", func() { seq = append(seq, "a1") })
	f.Schedule("pane-b", func() { seq = append(seq, "b1") })
	f.Schedule("pane-a", func() { seq = append(seq, "a2") })

	if f.Pending() != 2 {
		t.Fatalf("expected 2 pending ids, got %d", f.Pending())
	}
	f.flush()

	if len(seq) != 2 {
		t.Fatalf("expected 2 callbacks, got %d (%v)", len(seq), seq)
	}
	if seq[0] != "a2" || seq[1] != "b1" {
		t.Fatalf("unexpected callback order/content: %v", seq)
	}
	if frames != 1 {
		t.Fatalf("expected one queued frame, got %d", frames)
	}

	f.flush()
	if len(seq) != 2 || frames != 1 {
		t.Fatalf("expected no additional callbacks after empty flush, got %v", seq)
	}
}

func TestFrameSchedulerObservesDelay(t *testing.T) {
	var observed atomic.Uint64
	f := newFrameScheduler(nil, 60, 50*time.Millisecond, func(time.Duration) { observed.Add(1) })
	f.Schedule("pane", func() {})
	f.flush()
	if observed.Load() != 1 {
		t.Fatalf("expected one delay observation, got %d", observed.Load())
	}
}

func TestFrameSchedulerFlushesPendingOnStop(t *testing.T) {
	f := newFrameScheduler(nil, 1, 50*time.Millisecond, nil)
	var called atomic.Uint64

	f.Start()
	f.Schedule("pane", func() { called.Add(1) })
	f.Stop()

	if called.Load() != 1 {
		t.Fatalf("expected pending callback to flush on stop, got %d", called.Load())
	}
}

func TestFrameSchedulerStopIdempotent(t *testing.T) {
	f := newFrameScheduler(nil, 60, 50*time.Millisecond, nil)
	f.Start()
	f.Stop()
	f.Stop()
}

func TestFrameSchedulerStopWithoutStart(t *testing.T) {
	f := newFrameScheduler(nil, 60, 10*time.Millisecond, nil)
	done := make(chan struct{})
	go func() {
		f.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stop without start did not return")
	}
}

func TestFrameSchedulerTicksFrames(t *testing.T) {
	var applied atomic.Uint64
	f := newFrameScheduler(nil, 100, 50*time.Millisecond, nil)
	f.Start()
	defer f.Stop()

	f.Schedule("pane", func() { applied.Add(1) })
	deadline := time.Now().Add(time.Second)
	for applied.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if applied.Load() != 1 {
		t.Fatalf("expected the frame loop to apply the update, got %d", applied.Load())
	}
}
