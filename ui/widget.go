package ui

import (
	"fmt"

	derrors "trikdash/internal/errors"
	"trikdash/layout"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// Widget is an attachable, drawable unit placed by percentage geometry.
// A widget is replaced wholesale on refresh, never edited in place
// (map markers are the one exception, see MarkerOverlay).
type Widget interface {
	tview.Primitive
	Geometry() layout.RegionGeometry
	Model() Spec
}

// MarkerOverlay is implemented by widgets whose markers can change
// without rebuilding the widget.
type MarkerOverlay interface {
	AddMarker(m Marker)
	ClearMarkers()
	Markers() []Marker
}

// Factory builds widgets from geometry and a display model.
type Factory interface {
	New(geom layout.RegionGeometry, spec Spec) (Widget, error)
}

// DefaultFactory renders every Kind with tview primitives.
type DefaultFactory struct {
	BorderColor tcell.Color
	TitleColor  tcell.Color
	HideBorder  bool
}

// NewDefaultFactory returns a factory with the dashboard's stock frame colors.
func NewDefaultFactory() DefaultFactory {
	return DefaultFactory{BorderColor: tcell.ColorDarkCyan, TitleColor: tcell.ColorWhite}
}

func (f DefaultFactory) New(geom layout.RegionGeometry, spec Spec) (Widget, error) {
	if geom.Width <= 0 || geom.Height <= 0 {
		return nil, renderErr(spec, fmt.Errorf("empty geometry %s", geom))
	}
	var (
		w   Widget
		err error
	)
	switch s := spec.(type) {
	case TextSpec:
		w, err = f.newText(geom, s)
	case GaugeSpec:
		w, err = f.newGauge(geom, s)
	case BarSpec:
		w, err = f.newBar(geom, s)
	case DonutSpec:
		w, err = f.newDonut(geom, s)
	case TableSpec:
		w, err = f.newTable(geom, s)
	case MapSpec:
		w, err = f.newMap(geom, s)
	case nil:
		err = fmt.Errorf("nil display model")
	default:
		err = fmt.Errorf("unsupported display model %T", spec)
	}
	if err != nil {
		return nil, renderErr(spec, err)
	}
	return w, nil
}

func renderErr(spec Spec, err error) error {
	kind := Kind("unknown")
	if spec != nil {
		kind = spec.Kind()
	}
	return derrors.Wrap(err, derrors.ErrRender, fmt.Sprintf("build %s widget", kind))
}

func (f DefaultFactory) frame(box *tview.Box, title string) {
	box.SetBorder(!f.HideBorder)
	box.SetBorderColor(f.BorderColor)
	if title != "" {
		box.SetTitle(" " + title + " ").SetTitleAlign(tview.AlignLeft)
		box.SetTitleColor(f.TitleColor)
	}
}

// handle pairs a stock tview primitive with its placement and model.
type handle struct {
	tview.Primitive
	geom  layout.RegionGeometry
	model Spec
}

func (h *handle) Geometry() layout.RegionGeometry { return h.geom }
func (h *handle) Model() Spec                     { return h.model }

// printAt writes text starting at (x,y), clipped to maxWidth cells.
// It returns the number of cells written.
func printAt(screen tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) int {
	written := 0
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if written+w > maxWidth {
			break
		}
		screen.SetContent(x+written, y, r, nil, style)
		written += w
	}
	return written
}

// printCentered writes text centered within [x, x+width).
func printCentered(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	text = runewidth.Truncate(text, width, "")
	pad := (width - runewidth.StringWidth(text)) / 2
	printAt(screen, x+pad, y, width-pad, text, style)
}

func fill(screen tcell.Screen, x, y, width, height int, r rune, style tcell.Style) {
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			screen.SetContent(col, row, r, nil, style)
		}
	}
}
