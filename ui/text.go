package ui

import (
	"fmt"
	"strings"

	"trikdash/layout"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

func (f DefaultFactory) newText(geom layout.RegionGeometry, spec TextSpec) (Widget, error) {
	color, err := ParseColor(spec.Color)
	if err != nil {
		return nil, err
	}
	p := spec.Padding
	if p.Top < 0 || p.Bottom < 0 || p.Left < 0 || p.Right < 0 {
		return nil, fmt.Errorf("negative padding %+v", p)
	}
	tv := tview.NewTextView().SetDynamicColors(false).SetWrap(false).SetScrollable(false)
	tv.SetText(strings.Join(spec.Lines, "\n"))
	tv.SetTextColor(color)
	tv.SetBorderPadding(p.Top, p.Bottom, p.Left, p.Right)
	f.frame(tv.Box, spec.Title)
	return &handle{Primitive: tv, geom: geom, model: spec}, nil
}

func (f DefaultFactory) newTable(geom layout.RegionGeometry, spec TableSpec) (Widget, error) {
	color, err := ParseColor(spec.Color)
	if err != nil {
		return nil, err
	}
	cols := len(spec.Headers)
	if cols == 0 {
		return nil, fmt.Errorf("table needs at least one column")
	}
	if len(spec.ColumnWidths) != cols {
		return nil, fmt.Errorf("table has %d headers but %d column widths", cols, len(spec.ColumnWidths))
	}
	for i, row := range spec.Rows {
		if len(row) != cols {
			return nil, fmt.Errorf("table row %d has %d cells, want %d", i, len(row), cols)
		}
	}
	if spec.ColumnSpacing < 1 {
		spec.ColumnSpacing = 1
	}

	table := tview.NewTable().SetSelectable(false, false).SetFixed(1, 0)
	for c, h := range spec.Headers {
		cell := tview.NewTableCell(tableText(h, spec.ColumnWidths[c], spec.ColumnSpacing, c == cols-1)).
			SetTextColor(color).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false)
		table.SetCell(0, c, cell)
	}
	for r, row := range spec.Rows {
		for c, text := range row {
			table.SetCell(r+1, c, tview.NewTableCell(tableText(text, spec.ColumnWidths[c], spec.ColumnSpacing, c == cols-1)).
				SetTextColor(color))
		}
	}
	f.frame(table.Box, spec.Title)
	return &handle{Primitive: table, geom: geom, model: spec}, nil
}

// tableText fits text to a fixed column width. tview already separates
// columns with one space, extra spacing is padded here.
func tableText(text string, width, spacing int, last bool) string {
	if width <= 0 {
		return ""
	}
	out := runewidth.FillRight(runewidth.Truncate(text, width, ""), width)
	if !last && spacing > 1 {
		out += strings.Repeat(" ", spacing-1)
	}
	return out
}
