package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"trikdash/internal/ratelimit"
	"trikdash/layout"
	"trikdash/ui"
)

type panelKind int

const (
	kindLive panelKind = iota
	kindStatic
	kindOverlay
)

// Sample is one fetched value together with the display model built from it.
type Sample struct {
	Raw   any     `json:"raw,omitempty"`
	Model ui.Spec `json:"model"`
}

// Panel is one scheduled region of the dashboard: where it sits, how often
// it refreshes, and how its data becomes a display model.
type Panel struct {
	name     string
	interval time.Duration
	addr     layout.CellAddress
	kind     panelKind

	fetch  func(ctx context.Context) (any, error)
	format func(raw any) (ui.Spec, error)
	marker func(raw any) (ui.Marker, error)
	base   ui.Spec

	inFlight atomic.Bool
	seq      atomic.Uint64
	errors   *ratelimit.Counter

	mu          sync.Mutex
	scheduled   uint64 // newest sequence admitted for display
	fingerprint uint64 // of the newest admitted model
	fpValid     bool
	staged      ui.Widget // built, waiting for the UI loop
	stagedSeq   uint64
	applied     uint64 // newest sequence attached on screen
	geom        layout.RegionGeometry
	handle      ui.Widget
	overlay     ui.MarkerOverlay
	markerOn    bool
}

// NewPanel builds a panel that replaces its widget on every successful tick.
func NewPanel[T any](name string, interval time.Duration, addr layout.CellAddress,
	fetch func(context.Context) (T, error), format func(T) (ui.Spec, error)) *Panel {
	return &Panel{
		name:     name,
		interval: interval,
		addr:     addr,
		kind:     kindLive,
		fetch:    func(ctx context.Context) (any, error) { return fetch(ctx) },
		format:   func(raw any) (ui.Spec, error) { return format(raw.(T)) },
	}
}

// NewStaticPanel builds a panel that is drawn once at assembly and never
// refreshed.
func NewStaticPanel(name string, addr layout.CellAddress, spec ui.Spec) *Panel {
	return &Panel{name: name, addr: addr, kind: kindStatic, base: spec}
}

// NewOverlayPanel builds a map panel. The map widget is created once; each
// successful tick toggles a single marker on or off.
func NewOverlayPanel[T any](name string, interval time.Duration, addr layout.CellAddress, base ui.MapSpec,
	fetch func(context.Context) (T, error), marker func(T) (ui.Marker, error)) *Panel {
	return &Panel{
		name:     name,
		interval: interval,
		addr:     addr,
		kind:     kindOverlay,
		base:     base,
		fetch:    func(ctx context.Context) (any, error) { return fetch(ctx) },
		marker:   func(raw any) (ui.Marker, error) { return marker(raw.(T)) },
	}
}

func (p *Panel) Name() string                { return p.name }
func (p *Panel) Interval() time.Duration     { return p.interval }
func (p *Panel) Address() layout.CellAddress { return p.addr }
func (p *Panel) Static() bool                { return p.kind == kindStatic }

// Geometry returns the geometry resolved at assembly.
func (p *Panel) Geometry() layout.RegionGeometry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.geom
}

// Handle returns the widget currently on screen, or nil.
func (p *Panel) Handle() ui.Widget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// MarkerOn reports the state of the newest scheduled overlay toggle.
func (p *Panel) MarkerOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markerOn
}

// Sample fetches and formats once, outside the schedule. Overlay panels
// report the marker as Raw and their base map as Model.
func (p *Panel) Sample(ctx context.Context) (Sample, error) {
	if p.kind == kindStatic {
		return Sample{Model: p.base}, nil
	}
	raw, err := p.fetch(ctx)
	if err != nil {
		return Sample{}, err
	}
	if p.kind == kindOverlay {
		mk, err := p.marker(raw)
		if err != nil {
			return Sample{}, err
		}
		return Sample{Raw: mk, Model: p.base}, nil
	}
	spec, err := p.format(raw)
	if err != nil {
		return Sample{}, err
	}
	return Sample{Raw: raw, Model: spec}, nil
}

type admission int

const (
	admitBuild admission = iota
	admitUnchanged
	admitStale
)

// admit orders seq against every result already admitted and moves the
// panel to it, even when the model is unchanged. A build for an older
// sequence that is still running can then only be staged if it carries
// the same model.
func (p *Panel) admit(seq, fingerprint uint64, ok bool) admission {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq <= p.scheduled {
		return admitStale
	}
	same := ok && p.fpValid && p.fingerprint == fingerprint
	p.scheduled = seq
	p.fingerprint, p.fpValid = fingerprint, ok
	if same {
		return admitUnchanged
	}
	return admitBuild
}

// stage parks w for the next frame. It fails when a newer widget is
// already staged or a newer, different model has been admitted.
func (p *Panel) stage(seq, fingerprint uint64, w ui.Widget) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq <= p.stagedSeq || seq <= p.applied {
		return false
	}
	if seq != p.scheduled && !(p.fpValid && p.fingerprint == fingerprint) {
		return false
	}
	p.staged, p.stagedSeq = w, seq
	return true
}

// invalidate forgets the admitted fingerprint so the next tick rebuilds
// even when its model matches.
func (p *Panel) invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fpValid = false
}
