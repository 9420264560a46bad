package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "trikdash/internal/errors"
)

const tolerance = 1e-6

func TestResolveReferenceCell(t *testing.T) {
	spec := GridSpec{Rows: 12, Cols: 12}
	g, err := Resolve(spec, CellAddress{Row: 0, Col: 5, RowSpan: 2, ColSpan: 4})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, g.Top, 0.01)
	assert.InDelta(t, 41.67, g.Left, 0.01)
	assert.InDelta(t, 33.33, g.Width, 0.01)
	assert.InDelta(t, 16.67, g.Height, 0.01)
	assert.InDelta(t, 8.33, spec.CellWidth(), 0.01)
	assert.InDelta(t, 8.33, spec.CellHeight(), 0.01)
}

func TestResolveMarginAndSpacing(t *testing.T) {
	spec := GridSpec{Rows: 4, Cols: 5, MarginPercent: 5, SpacingPercent: 1}
	g, err := Resolve(spec, CellAddress{Row: 1, Col: 2, RowSpan: 2, ColSpan: 3})
	require.NoError(t, err)

	assert.InDelta(t, 27.5, g.Top, tolerance)   // 1*22.5 + 5
	assert.InDelta(t, 41.0, g.Left, tolerance)  // 2*18 + 5
	assert.InDelta(t, 53.0, g.Width, tolerance) // 3*18 - 1
	assert.InDelta(t, 44.0, g.Height, tolerance)
}

func TestResolveStaysInsideViewport(t *testing.T) {
	specs := []GridSpec{
		{Rows: 12, Cols: 12},
		{Rows: 3, Cols: 7, MarginPercent: 2.5},
		{Rows: 1, Cols: 1, MarginPercent: 49},
		{Rows: 9, Cols: 4, MarginPercent: 1, SpacingPercent: 0.5},
	}
	for _, spec := range specs {
		for row := 0; row < spec.Rows; row++ {
			for col := 0; col < spec.Cols; col++ {
				for rs := 1; row+rs <= spec.Rows; rs++ {
					for cs := 1; col+cs <= spec.Cols; cs++ {
						addr := CellAddress{Row: row, Col: col, RowSpan: rs, ColSpan: cs}
						g, err := Resolve(spec, addr)
						require.NoError(t, err, "spec=%+v addr=%s", spec, addr)
						assert.Greater(t, g.Width, 0.0)
						assert.Greater(t, g.Height, 0.0)
						assert.LessOrEqual(t, g.Top+g.Height, 100+tolerance)
						assert.LessOrEqual(t, g.Left+g.Width, 100+tolerance)
						assert.GreaterOrEqual(t, g.Top, 0.0)
						assert.GreaterOrEqual(t, g.Left, 0.0)
					}
				}
			}
		}
	}
}

func TestResolveRejectsOverflow(t *testing.T) {
	spec := GridSpec{Rows: 12, Cols: 12}
	tests := []struct {
		name string
		addr CellAddress
	}{
		{"row overflow", CellAddress{Row: 11, Col: 0, RowSpan: 2, ColSpan: 1}},
		{"col overflow", CellAddress{Row: 0, Col: 9, RowSpan: 1, ColSpan: 4}},
		{"zero span", CellAddress{Row: 0, Col: 0, RowSpan: 0, ColSpan: 1}},
		{"negative row", CellAddress{Row: -1, Col: 0, RowSpan: 1, ColSpan: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(spec, tt.addr)
			require.Error(t, err)
			assert.True(t, derrors.IsCode(err, derrors.ErrConfig))
		})
	}
}

func TestValidateGridSpec(t *testing.T) {
	bad := []GridSpec{
		{Rows: 0, Cols: 12},
		{Rows: 12, Cols: -1},
		{Rows: 12, Cols: 12, MarginPercent: 50},
		{Rows: 12, Cols: 12, MarginPercent: -1},
		{Rows: 12, Cols: 12, SpacingPercent: -0.5},
	}
	for _, spec := range bad {
		err := spec.Validate()
		assert.True(t, derrors.IsCode(err, derrors.ErrConfig), "spec %+v", spec)
	}
	assert.NoError(t, GridSpec{Rows: 12, Cols: 12, MarginPercent: 49.9}.Validate())
}

func TestResolveRejectsCollapsedRegion(t *testing.T) {
	spec := GridSpec{Rows: 12, Cols: 12, SpacingPercent: 10}
	_, err := Resolve(spec, CellAddress{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1})
	assert.True(t, derrors.IsCode(err, derrors.ErrConfig))
}

func TestRectTilesWithoutGaps(t *testing.T) {
	spec := GridSpec{Rows: 12, Cols: 12}
	left, err := Resolve(spec, CellAddress{Row: 0, Col: 0, RowSpan: 12, ColSpan: 5})
	require.NoError(t, err)
	right, err := Resolve(spec, CellAddress{Row: 0, Col: 5, RowSpan: 12, ColSpan: 7})
	require.NoError(t, err)

	for _, width := range []int{80, 101, 157, 233} {
		lx, _, lw, lh := left.Rect(0, 0, width, 50)
		rx, _, rw, _ := right.Rect(0, 0, width, 50)
		assert.Equal(t, 0, lx)
		assert.Equal(t, lx+lw, rx, "width=%d", width)
		assert.Equal(t, width, rx+rw, "width=%d", width)
		assert.Equal(t, 50, lh)
	}
}

func TestRectOffsetAndDegenerateArea(t *testing.T) {
	g := RegionGeometry{Top: 50, Left: 25, Width: 50, Height: 50}
	x, y, w, h := g.Rect(10, 2, 40, 20)
	assert.Equal(t, []int{20, 12, 20, 10}, []int{x, y, w, h})

	x, y, w, h = g.Rect(0, 0, 0, 0)
	assert.Equal(t, []int{0, 0, 0, 0}, []int{x, y, w, h})
}
