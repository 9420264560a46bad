package ui

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ScreenOptions configures a Screen.
type ScreenOptions struct {
	TargetFPS int
	// Terminal overrides the tcell screen, e.g. a simulation screen in tests.
	Terminal tcell.Screen
	Metrics  *Metrics
}

// Screen owns the terminal: the tview application, the root canvas and the
// frame scheduler every widget update goes through.
type Screen struct {
	app       *tview.Application
	canvas    *Canvas
	scheduler *frameScheduler
	metrics   *Metrics

	ready    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewScreen(opts ScreenOptions) *Screen {
	app := tview.NewApplication()
	if opts.Terminal != nil {
		app.SetScreen(opts.Terminal)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Screen{
		app:     app,
		canvas:  NewCanvas(),
		metrics: metrics,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	var once sync.Once
	app.SetBeforeDrawFunc(func(tcell.Screen) bool {
		once.Do(func() { close(s.ready) })
		return false
	})
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if isQuitKey(event) {
			go s.Stop()
			return nil
		}
		return event
	})
	app.SetRoot(s.canvas, true)
	s.scheduler = newFrameScheduler(func(fn func()) { app.QueueUpdateDraw(fn) }, opts.TargetFPS, 100*time.Millisecond, metrics.ObserveFrame)
	return s
}

func isQuitKey(event *tcell.EventKey) bool {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return event.Rune() == 'q' || event.Rune() == 'Q'
	}
	return false
}

// Schedule queues fn for the next frame. A later fn with the same id
// replaces an unapplied one.
func (s *Screen) Schedule(id string, fn func()) {
	s.scheduler.Schedule(id, fn)
}

// Attach adds w to the viewport. Outside assembly it must run on the UI loop.
func (s *Screen) Attach(w Widget) error {
	if err := s.canvas.Append(w); err != nil {
		return err
	}
	s.metrics.widgetAttached(1)
	return nil
}

func (s *Screen) Detach(w Widget) {
	if s.canvas.Remove(w) {
		s.metrics.widgetAttached(-1)
	}
}

func (s *Screen) Canvas() *Canvas { return s.canvas }

func (s *Screen) Metrics() *Metrics { return s.metrics }

// Run starts the frame loop and blocks until the UI exits.
func (s *Screen) Run() error {
	s.scheduler.Start()
	err := s.app.Run()
	s.Stop()
	return err
}

// WaitReady blocks until the first frame has been drawn.
func (s *Screen) WaitReady() {
	<-s.ready
}

// Ready is closed once the first frame has been drawn.
func (s *Screen) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed once Stop has run.
func (s *Screen) Done() <-chan struct{} {
	return s.done
}

// Stop halts the frame loop and the application. It is safe to call from
// any goroutine and more than once.
func (s *Screen) Stop() {
	s.stopOnce.Do(func() {
		s.scheduler.Stop()
		s.app.Stop()
		close(s.done)
	})
}
