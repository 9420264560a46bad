// Package stats tracks per-panel refresh outcomes for the shutdown summary
// and the dump command.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Refresh outcomes.
const (
	OutcomeApplied     = "applied"
	OutcomeUnchanged   = "unchanged"
	OutcomeSkipped     = "skipped"
	OutcomeTimeout     = "timeout"
	OutcomeFetchError  = "fetch_error"
	OutcomeRenderError = "render_error"
	OutcomeStale       = "stale"
)

// Tracker counts refresh outcomes per panel.
type Tracker struct {
	// counters live in sync.Map + atomic.Uint64 so every panel goroutine can
	// record without sharing a mutex
	panelCounts   sync.Map // "panel|outcome" -> *atomic.Uint64
	outcomeCounts sync.Map // outcome -> *atomic.Uint64
	start         atomic.Int64
}

// NewTracker creates a new stats tracker
func NewTracker() *Tracker {
	t := &Tracker{}
	t.start.Store(time.Now().UnixNano())
	return t
}

// Record counts one outcome for panel. A nil tracker ignores the call.
func (t *Tracker) Record(panel, outcome string) {
	if t == nil {
		return
	}
	panel = strings.TrimSpace(panel)
	outcome = strings.TrimSpace(outcome)
	if panel == "" || outcome == "" {
		return
	}
	incrementCounter(&t.panelCounts, panel+"|"+outcome)
	incrementCounter(&t.outcomeCounts, outcome)
}

// Count returns how often panel ended with outcome.
func (t *Tracker) Count(panel, outcome string) uint64 {
	if t == nil {
		return 0
	}
	if v, ok := t.panelCounts.Load(panel + "|" + outcome); ok {
		return v.(*atomic.Uint64).Load()
	}
	return 0
}

// GetOutcomeCounts returns a copy of the totals per outcome.
func (t *Tracker) GetOutcomeCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	if t == nil {
		return counts
	}
	t.outcomeCounts.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return counts
}

// GetPanelCounts returns outcome counts keyed by panel.
func (t *Tracker) GetPanelCounts() map[string]map[string]uint64 {
	out := make(map[string]map[string]uint64)
	if t == nil {
		return out
	}
	t.panelCounts.Range(func(key, value any) bool {
		panel, outcome, _ := strings.Cut(key.(string), "|")
		if out[panel] == nil {
			out[panel] = make(map[string]uint64)
		}
		out[panel][outcome] = value.(*atomic.Uint64).Load()
		return true
	})
	return out
}

// GetUptime returns how long the tracker has been running
func (t *Tracker) GetUptime() time.Duration {
	start := t.start.Load()
	return time.Since(time.Unix(0, start))
}

// Reset resets all counters
func (t *Tracker) Reset() {
	t.panelCounts.Range(func(key, _ any) bool {
		t.panelCounts.Delete(key)
		return true
	})
	t.outcomeCounts.Range(func(key, _ any) bool {
		t.outcomeCounts.Delete(key)
		return true
	})
	t.start.Store(time.Now().UnixNano())
}

// SnapshotLines returns human-readable stats, one line per panel after an
// overall line, in name order.
func (t *Tracker) SnapshotLines() []string {
	panels := t.GetPanelCounts()
	names := make([]string, 0, len(panels))
	for name := range panels {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, fmt.Sprintf("Refreshes over %s: %s", t.GetUptime().Truncate(time.Second), formatCounts(t.GetOutcomeCounts())))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("  %s: %s", name, formatCounts(panels[name])))
	}
	return lines
}

func formatCounts(counts map[string]uint64) string {
	if len(counts) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(", ")
		}
		fmt.Fprintf(&builder, "%s=%s", k, humanize.Comma(int64(counts[k])))
	}
	return builder.String()
}

func incrementCounter(m *sync.Map, key string) {
	if value, ok := m.Load(key); ok {
		value.(*atomic.Uint64).Add(1)
		return
	}
	counter := &atomic.Uint64{}
	actual, loaded := m.LoadOrStore(key, counter)
	if loaded {
		actual.(*atomic.Uint64).Add(1)
		return
	}
	counter.Add(1)
}
