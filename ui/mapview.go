package ui

import (
	"fmt"
	"math"
	"sync"

	"trikdash/layout"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// lonSpan is a run of land between two longitudes, in degrees.
type lonSpan struct{ from, to float64 }

// landBands is a coarse equirectangular world outline in 10 degree
// latitude bands, north to south. It is rasterized at draw time so the
// backdrop scales with the panel.
var landBands = [18][]lonSpan{
	{{-60, -20}}, // 90N
	{{-120, -65}, {-60, -20}, {15, 30}, {55, 145}},                      // 80N
	{{-165, -60}, {-50, -25}, {-22, -14}, {5, 180}},                     // 70N
	{{-135, -55}, {-8, 2}, {5, 140}, {155, 162}},                        // 60N
	{{-125, -60}, {-10, 45}, {45, 135}, {140, 146}},                     // 50N
	{{-122, -75}, {-10, 40}, {35, 122}, {130, 142}},                     // 40N
	{{-112, -97}, {-83, -80}, {-16, 36}, {36, 57}, {68, 122}},           // 30N
	{{-105, -83}, {-17, 42}, {42, 55}, {72, 88}, {94, 110}, {120, 126}}, // 20N
	{{-80, -50}, {-10, 50}, {98, 120}},                                  // 10N
	{{-80, -35}, {10, 41}, {105, 142}},                                  // 0
	{{-76, -37}, {12, 41}, {44, 50}, {122, 146}},                        // 10S
	{{-70, -41}, {15, 35}, {114, 154}},                                  // 20S
	{{-73, -55}, {17, 28}, {115, 151}, {172, 178}},                      // 30S
	{{-75, -63}, {144, 149}, {166, 175}},                                // 40S
	{{-75, -66}},                                                        // 50S
	{{-62, -56}},                                                        // 60S
	{{-180, 180}},                                                       // 70S
	{{-180, 180}},                                                       // 80S
}

func isLand(lat, lon float64) bool {
	band := int(math.Floor((90 - lat) / 10))
	if band < 0 || band >= len(landBands) {
		return false
	}
	for _, s := range landBands[band] {
		if lon >= s.from && lon < s.to {
			return true
		}
	}
	return false
}

// MapView is a world map with an overlay of markers. Markers change in
// place; the backdrop never does.
type MapView struct {
	*tview.Box

	geom  layout.RegionGeometry
	model MapSpec
	land  tcell.Color

	mu      sync.Mutex
	markers []Marker
}

func (f DefaultFactory) newMap(geom layout.RegionGeometry, spec MapSpec) (Widget, error) {
	land, err := ParseColor(spec.LandColor)
	if err != nil {
		return nil, err
	}
	if land == tcell.ColorDefault {
		land = tcell.ColorGreen
	}
	m := &MapView{Box: tview.NewBox(), geom: geom, model: spec, land: land}
	f.frame(m.Box, spec.Title)
	return m, nil
}

func (m *MapView) Geometry() layout.RegionGeometry { return m.geom }
func (m *MapView) Model() Spec                     { return m.model }

// ValidateMarker reports whether m can be drawn.
func ValidateMarker(m Marker) error {
	if math.IsNaN(m.Lat) || m.Lat < -90 || m.Lat > 90 {
		return fmt.Errorf("marker latitude %v out of range", m.Lat)
	}
	if math.IsNaN(m.Lon) || m.Lon < -180 || m.Lon > 180 {
		return fmt.Errorf("marker longitude %v out of range", m.Lon)
	}
	if runewidth.StringWidth(m.Char) != 1 {
		return fmt.Errorf("marker char %q must be one cell wide", m.Char)
	}
	if _, err := ParseColor(m.Color); err != nil {
		return err
	}
	return nil
}

func (m *MapView) AddMarker(mk Marker) {
	m.mu.Lock()
	m.markers = append(m.markers, mk)
	m.mu.Unlock()
}

func (m *MapView) ClearMarkers() {
	m.mu.Lock()
	m.markers = nil
	m.mu.Unlock()
}

func (m *MapView) Markers() []Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

// cellFor maps a coordinate to a cell offset inside a width x height area.
func cellFor(lat, lon float64, width, height int) (int, int) {
	col := int((lon + 180) / 360 * float64(width))
	row := int((90 - lat) / 180 * float64(height))
	if col >= width {
		col = width - 1
	}
	if row >= height {
		row = height - 1
	}
	return col, row
}

func (m *MapView) Draw(screen tcell.Screen) {
	m.Box.DrawForSubclass(screen, m)
	x, y, width, height := m.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}
	landStyle := tcell.StyleDefault.Foreground(m.land)
	for row := 0; row < height; row++ {
		lat := 90 - (float64(row)+0.5)/float64(height)*180
		for col := 0; col < width; col++ {
			lon := (float64(col)+0.5)/float64(width)*360 - 180
			if isLand(lat, lon) {
				screen.SetContent(x+col, y+row, '⣿', nil, landStyle)
			}
		}
	}
	for _, mk := range m.Markers() {
		if ValidateMarker(mk) != nil {
			continue
		}
		col, row := cellFor(mk.Lat, mk.Lon, width, height)
		color, _ := ParseColor(mk.Color)
		printAt(screen, x+col, y+row, 1, mk.Char, tcell.StyleDefault.Foreground(color).Bold(true))
	}
}
