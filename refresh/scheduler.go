// Package refresh drives every dashboard panel on its own cadence: fetch in
// the background, build a replacement widget, and hand the swap to the
// screen's frame loop. Slow or failing panels never block each other.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	derrors "trikdash/internal/errors"
	"trikdash/internal/logger"
	"trikdash/internal/ratelimit"
	"trikdash/layout"
	"trikdash/stats"
	"trikdash/ui"
)

const (
	defaultFetchTimeout     = time.Second
	defaultErrorLogInterval = 30 * time.Second
)

// Options wires a Scheduler to its collaborators.
type Options struct {
	Grid    layout.GridSpec
	Surface ui.Surface
	Factory ui.Factory
	Logger  logger.Logger
	Metrics *Metrics
	Stats   *stats.Tracker

	// FetchTimeout bounds one fetch. A result arriving later is discarded.
	FetchTimeout time.Duration
	// ErrorLogInterval limits repeated error lines per panel.
	ErrorLogInterval time.Duration
}

// Scheduler owns the set of panels and their tick loops.
type Scheduler struct {
	opts Options

	mu      sync.Mutex
	panels  []*Panel
	byName  map[string]*Panel
	started bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	fetches sync.WaitGroup
}

func New(opts Options) (*Scheduler, error) {
	if err := opts.Grid.Validate(); err != nil {
		return nil, err
	}
	if opts.Surface == nil {
		return nil, derrors.New(derrors.ErrConfig, "refresh scheduler needs a surface", "")
	}
	if opts.Factory == nil {
		opts.Factory = ui.NewDefaultFactory()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.ErrorLogInterval <= 0 {
		opts.ErrorLogInterval = defaultErrorLogInterval
	}
	return &Scheduler{opts: opts, byName: make(map[string]*Panel)}, nil
}

// Add registers p. Geometry is resolved here so an address that does not
// fit the grid fails assembly. Static and overlay panels get their widget
// attached immediately.
func (s *Scheduler) Add(p *Panel) error {
	if p == nil || p.name == "" {
		return derrors.Configf("panel must have a name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return derrors.Configf("panel %s added after the scheduler started", p.name)
	}
	if _, dup := s.byName[p.name]; dup {
		return derrors.Configf("duplicate panel %s", p.name)
	}
	if p.kind != kindStatic && p.interval <= 0 {
		return derrors.Configf("panel %s: refresh interval must be positive, got %s", p.name, p.interval)
	}
	geom, err := layout.Resolve(s.opts.Grid, p.addr)
	if err != nil {
		return derrors.Wrap(err, derrors.ErrConfig, fmt.Sprintf("panel %s at %s", p.name, p.addr))
	}
	p.geom = geom
	p.errors = ratelimit.NewCounter(s.opts.ErrorLogInterval)

	switch p.kind {
	case kindStatic:
		w, err := s.opts.Factory.New(geom, p.base)
		if err != nil {
			return err
		}
		if err := s.opts.Surface.Attach(w); err != nil {
			return err
		}
		p.handle = w
	case kindOverlay:
		w, err := s.opts.Factory.New(geom, p.base)
		if err != nil {
			return err
		}
		overlay, ok := w.(ui.MarkerOverlay)
		if !ok {
			return derrors.Configf("panel %s: %T does not support markers", p.name, w)
		}
		if err := s.opts.Surface.Attach(w); err != nil {
			return err
		}
		p.handle = w
		p.overlay = overlay
	}

	s.panels = append(s.panels, p)
	s.byName[p.name] = p
	s.opts.Logger.Debug("panel %s at %s -> %s every %s", p.name, p.addr, geom, p.interval)
	return nil
}

// Panels returns the registered panels in registration order.
func (s *Scheduler) Panels() []*Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Panel, len(s.panels))
	copy(out, s.panels)
	return out
}

// Panel looks up a registered panel by name.
func (s *Scheduler) Panel(name string) (*Panel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byName[name]
	return p, ok
}

// Start launches one tick loop per refreshing panel. Each loop ticks once
// right away so the screen fills without waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("refresh: scheduler already started")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	for _, p := range s.panels {
		if p.kind == kindStatic {
			continue
		}
		s.loops.Add(1)
		go s.loop(ctx, p)
	}
	return nil
}

// Stop cancels every loop and outstanding fetch. It does not wait for
// fetches to return; their results are discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.loops.Wait()
}

func (s *Scheduler) loop(ctx context.Context, p *Panel) {
	defer s.loops.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	s.tick(ctx, p)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, p)
		}
	}
}

// tick starts a fetch unless the previous one is still outstanding.
func (s *Scheduler) tick(ctx context.Context, p *Panel) {
	s.opts.Metrics.tick(p.name)
	if !p.inFlight.CompareAndSwap(false, true) {
		s.record(p, stats.OutcomeSkipped)
		s.opts.Logger.Debug("%s: previous fetch still running, tick skipped", p.name)
		return
	}
	seq := p.seq.Add(1)
	s.fetches.Add(1)
	go func() {
		defer s.fetches.Done()
		s.refresh(ctx, p, seq)
	}()
}

type fetchResult struct {
	raw any
	err error
}

func (s *Scheduler) refresh(ctx context.Context, p *Panel, seq uint64) {
	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		raw, err := p.fetch(fctx)
		done <- fetchResult{raw: raw, err: err}
	}()

	var (
		res      fetchResult
		timedOut bool
	)
	select {
	case res = <-done:
		// A provider that gave up on the deadline itself counts as a timeout.
		timedOut = res.err != nil && errors.Is(fctx.Err(), context.DeadlineExceeded)
	case <-fctx.Done():
		// The fetch is abandoned; whatever it returns lands in the buffered
		// channel and is dropped.
		timedOut = true
	}
	p.inFlight.Store(false)

	if ctx.Err() != nil {
		return
	}
	if timedOut {
		s.fail(p, stats.OutcomeTimeout, derrors.Wrap(fctx.Err(), derrors.ErrFetch,
			fmt.Sprintf("%s: fetch exceeded %s", p.name, s.opts.FetchTimeout)))
		return
	}
	s.opts.Metrics.fetched(p.name, time.Since(start))
	if res.err != nil {
		s.fail(p, stats.OutcomeFetchError, derrors.Wrap(res.err, derrors.ErrFetch, p.name+": fetch failed"))
		return
	}
	if p.kind == kindOverlay {
		s.toggleMarker(p, seq, res.raw)
		return
	}
	s.rebuild(p, seq, res.raw)
}

func (s *Scheduler) rebuild(p *Panel, seq uint64, raw any) {
	spec, err := p.format(raw)
	if err != nil {
		s.fail(p, stats.OutcomeRenderError, derrors.Wrap(err, derrors.ErrRender, p.name+": format failed"))
		return
	}
	geom, err := layout.Resolve(s.opts.Grid, p.addr)
	if err != nil {
		s.fail(p, stats.OutcomeRenderError, err)
		return
	}
	fp, err := ui.Fingerprint(spec, geom)
	switch p.admit(seq, fp, err == nil) {
	case admitStale:
		s.record(p, stats.OutcomeStale)
		return
	case admitUnchanged:
		s.record(p, stats.OutcomeUnchanged)
		s.recovered(p)
		return
	}
	w, err := s.opts.Factory.New(geom, spec)
	if err != nil {
		p.invalidate()
		s.fail(p, stats.OutcomeRenderError, err)
		return
	}
	if !p.stage(seq, fp, w) {
		s.record(p, stats.OutcomeStale)
		return
	}
	s.opts.Surface.Schedule(p.name, func() { s.apply(p) })
	s.record(p, stats.OutcomeApplied)
	s.recovered(p)
}

// apply runs on the UI loop and attaches the newest staged widget. The new
// widget goes in before the old one comes out, so the region is never
// empty.
func (s *Scheduler) apply(p *Panel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, seq := p.staged, p.stagedSeq
	if w == nil || seq <= p.applied {
		return
	}
	p.staged = nil
	if err := s.opts.Surface.Attach(w); err != nil {
		// Nothing new is on screen, so an identical model next tick must
		// be rebuilt.
		p.fpValid = false
		s.record(p, stats.OutcomeRenderError)
		s.opts.Logger.Error("%s: attach failed: %s", p.name, derrors.Brief(err))
		return
	}
	if p.handle != nil {
		s.opts.Surface.Detach(p.handle)
	}
	p.handle = w
	p.applied = seq
	s.opts.Metrics.render(p.name)
}

func (s *Scheduler) toggleMarker(p *Panel, seq uint64, raw any) {
	mk, err := p.marker(raw)
	if err == nil {
		err = ui.ValidateMarker(mk)
	}
	if err != nil {
		s.fail(p, stats.OutcomeRenderError, derrors.Wrap(err, derrors.ErrRender, p.name+": bad marker"))
		return
	}

	p.mu.Lock()
	if seq <= p.scheduled {
		p.mu.Unlock()
		s.record(p, stats.OutcomeStale)
		return
	}
	p.scheduled = seq
	p.markerOn = !p.markerOn
	on := p.markerOn
	overlay := p.overlay
	p.mu.Unlock()

	// The closure carries the absolute state, so a coalesced frame still
	// ends with exactly one marker or none.
	s.opts.Surface.Schedule(p.name, func() {
		overlay.ClearMarkers()
		if on {
			overlay.AddMarker(mk)
		}
	})
	s.record(p, stats.OutcomeApplied)
	s.recovered(p)
}

func (s *Scheduler) record(p *Panel, outcome string) {
	s.opts.Metrics.result(p.name, outcome)
	s.opts.Stats.Record(p.name, outcome)
}

// fail records a contained refresh failure. The panel keeps showing its
// previous widget.
func (s *Scheduler) fail(p *Panel, outcome string, err error) {
	s.record(p, outcome)
	total, suppressed, ok := p.errors.Inc()
	if !ok {
		return
	}
	logf := s.opts.Logger.Warn
	if derrors.IsCode(err, derrors.ErrRender) {
		logf = s.opts.Logger.Error
	}
	if suppressed > 0 {
		logf("%s (%d similar suppressed, %d total)", derrors.Brief(err), suppressed, total)
		return
	}
	logf("%s", derrors.Brief(err))
}

// recovered reopens the error log window so the next failure after a
// success is reported at once.
func (s *Scheduler) recovered(p *Panel) {
	p.errors.Reset()
}

// wait blocks until every started fetch has finished. Tests use it to
// observe a tick deterministically.
func (s *Scheduler) wait() {
	s.fetches.Wait()
}
