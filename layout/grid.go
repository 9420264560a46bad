// Package layout maps logical grid cells to resolution-independent
// percentage regions of the terminal viewport.
//
// All arithmetic is done in percent of the full viewport, so a resolved
// RegionGeometry stays valid at any terminal size. Converting to absolute
// cells happens only at draw time via RegionGeometry.Rect.
package layout

import (
	"fmt"
	"math"

	derrors "trikdash/internal/errors"
)

// GridSpec is the logical grid of one dashboard instance.
type GridSpec struct {
	Rows           int
	Cols           int
	MarginPercent  float64
	SpacingPercent float64
}

// CellAddress places a panel on the grid.
type CellAddress struct {
	Row     int
	Col     int
	RowSpan int
	ColSpan int
}

func (a CellAddress) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", a.Row, a.Col, a.RowSpan, a.ColSpan)
}

// RegionGeometry is a resolved placement in percent of the viewport.
type RegionGeometry struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

func (g RegionGeometry) String() string {
	return fmt.Sprintf("top=%.2f%% left=%.2f%% width=%.2f%% height=%.2f%%", g.Top, g.Left, g.Width, g.Height)
}

// Composite is implemented by primitives that lay out other widgets
// themselves. A composite cannot be placed inside another layout.
type Composite interface {
	Composite() bool
}

// Validate reports a CONFIG error when the grid itself is unusable.
func (s GridSpec) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return derrors.Configf("grid must have positive dimensions, got %dx%d", s.Rows, s.Cols)
	}
	if math.IsNaN(s.MarginPercent) || s.MarginPercent < 0 || s.MarginPercent >= 50 {
		return derrors.Configf("grid margin must be in [0,50), got %v", s.MarginPercent)
	}
	if math.IsNaN(s.SpacingPercent) || s.SpacingPercent < 0 {
		return derrors.Configf("grid spacing must be non-negative, got %v", s.SpacingPercent)
	}
	return nil
}

// CellWidth is the width of one column in percent.
func (s GridSpec) CellWidth() float64 {
	return (100 - 2*s.MarginPercent) / float64(s.Cols)
}

// CellHeight is the height of one row in percent.
func (s GridSpec) CellHeight() float64 {
	return (100 - 2*s.MarginPercent) / float64(s.Rows)
}

// Check reports a CONFIG error when addr does not fit inside the grid.
func (s GridSpec) Check(addr CellAddress) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if addr.Row < 0 || addr.Col < 0 {
		return derrors.Configf("cell %s has a negative coordinate", addr)
	}
	if addr.RowSpan < 1 || addr.ColSpan < 1 {
		return derrors.Configf("cell %s must span at least one row and column", addr)
	}
	if addr.Row+addr.RowSpan > s.Rows {
		return derrors.Configf("cell %s overflows the grid: row+rowSpan=%d > rows=%d", addr, addr.Row+addr.RowSpan, s.Rows)
	}
	if addr.Col+addr.ColSpan > s.Cols {
		return derrors.Configf("cell %s overflows the grid: col+colSpan=%d > cols=%d", addr, addr.Col+addr.ColSpan, s.Cols)
	}
	return nil
}

// Resolve converts a logical cell address into percentage geometry.
// It is a pure function of its inputs.
func Resolve(spec GridSpec, addr CellAddress) (RegionGeometry, error) {
	if err := spec.Check(addr); err != nil {
		return RegionGeometry{}, err
	}
	cw := spec.CellWidth()
	ch := spec.CellHeight()
	g := RegionGeometry{
		Top:    float64(addr.Row)*ch + spec.MarginPercent,
		Left:   float64(addr.Col)*cw + spec.MarginPercent,
		Width:  cw*float64(addr.ColSpan) - spec.SpacingPercent,
		Height: ch*float64(addr.RowSpan) - spec.SpacingPercent,
	}
	if g.Width <= 0 || g.Height <= 0 {
		return RegionGeometry{}, derrors.Configf("cell %s collapses to %.2f%%x%.2f%% after spacing %.2f%%", addr, g.Width, g.Height, spec.SpacingPercent)
	}
	return g, nil
}

// Rect maps the geometry onto an absolute area (usually the whole screen).
// Both edges are floored independently so regions that share an edge in
// percent also share it in cells, without gaps or overlap.
func (g RegionGeometry) Rect(x, y, width, height int) (int, int, int, int) {
	x0 := edge(g.Left, width)
	x1 := edge(g.Left+g.Width, width)
	y0 := edge(g.Top, height)
	y1 := edge(g.Top+g.Height, height)
	return x + x0, y + y0, x1 - x0, y1 - y0
}

func edge(percent float64, total int) int {
	if total <= 0 {
		return 0
	}
	// The epsilon absorbs float error such as 8.333..*12 = 99.9999.
	v := int(math.Floor(percent*float64(total)/100 + 1e-9))
	if v < 0 {
		return 0
	}
	if v > total {
		return total
	}
	return v
}
