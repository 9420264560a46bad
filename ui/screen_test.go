package ui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func TestScreenQuitKeyStopsRun(t *testing.T) {
	sim := tcell.NewSimulationScreen("UTF-8")
	sim.SetSize(80, 24)
	s := NewScreen(ScreenOptions{TargetFPS: 60, Terminal: sim})

	w, err := NewDefaultFactory().New(fullScreen, TextSpec{Title: "Stats", Lines: []string{"Up time"}})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := s.Attach(w); err != nil {
		t.Fatalf("attach: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	ready := make(chan struct{})
	go func() {
		s.WaitReady()
		close(ready)
	}()
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatalf("screen never drew its first frame")
	}

	if s.Canvas().Resizes() == 0 {
		t.Fatalf("expected the canvas to be sized by the first draw")
	}
	if s.Metrics().Attached() != 1 {
		t.Fatalf("expected one attached widget, got %d", s.Metrics().Attached())
	}

	sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("quit key did not stop the screen")
	}
	select {
	case <-s.Done():
	default:
		t.Fatalf("done channel not closed after quit")
	}
}

func TestScreenStopBeforeRun(t *testing.T) {
	sim := tcell.NewSimulationScreen("UTF-8")
	s := NewScreen(ScreenOptions{Terminal: sim})
	s.Stop()
	s.Stop()
	select {
	case <-s.Done():
	default:
		t.Fatalf("done channel not closed")
	}
}

func TestIsQuitKey(t *testing.T) {
	quits := []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
	}
	for _, ev := range quits {
		if !isQuitKey(ev) {
			t.Fatalf("expected %v to quit", ev.Name())
		}
	}
	if isQuitKey(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Fatalf("x should not quit")
	}
}
