package ui

import (
	"strings"
	"testing"

	"trikdash/layout"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

var fullScreen = layout.RegionGeometry{Top: 0, Left: 0, Width: 100, Height: 100}

func newSimScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	s.SetSize(width, height)
	t.Cleanup(s.Fini)
	return s
}

// rowText returns the visible runes of one screen row.
func rowText(s tcell.SimulationScreen, y int) string {
	s.Show()
	cells, width, _ := s.GetContents()
	var b strings.Builder
	for x := 0; x < width; x++ {
		c := cells[y*width+x]
		if len(c.Runes) == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return b.String()
}

// textAt returns n runes of row y starting at column x.
func textAt(s tcell.SimulationScreen, x, y, n int) string {
	row := []rune(rowText(s, y))
	if x+n > len(row) {
		n = len(row) - x
	}
	return string(row[x : x+n])
}

func cellRune(s tcell.SimulationScreen, x, y int) rune {
	return []rune(rowText(s, y))[x]
}

func screenText(s tcell.SimulationScreen) string {
	_, _, height := s.GetContents()
	lines := make([]string, 0, height)
	for y := 0; y < height; y++ {
		lines = append(lines, rowText(s, y))
	}
	return strings.Join(lines, "\n")
}

func cellStyle(s tcell.SimulationScreen, x, y int) tcell.Style {
	s.Show()
	cells, width, _ := s.GetContents()
	return cells[y*width+x].Style
}

// drawAt places w over a width x height area and draws it.
func drawAt(t *testing.T, w Widget, width, height int) tcell.SimulationScreen {
	t.Helper()
	s := newSimScreen(t, width, height)
	w.SetRect(w.Geometry().Rect(0, 0, width, height))
	w.Draw(s)
	return s
}

type stubWidget struct {
	*tview.Box
	geom layout.RegionGeometry
}

func newStub(geom layout.RegionGeometry) *stubWidget {
	return &stubWidget{Box: tview.NewBox(), geom: geom}
}

func (w *stubWidget) Geometry() layout.RegionGeometry { return w.geom }
func (w *stubWidget) Model() Spec                     { return TextSpec{} }

type compositeWidget struct{ *stubWidget }

func (compositeWidget) Composite() bool { return true }
