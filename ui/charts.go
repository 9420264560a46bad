package ui

import (
	"fmt"
	"math"
	"strconv"

	"trikdash/layout"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type gaugeSegment struct {
	percent float64
	color   tcell.Color
}

// gaugeView draws stacked segments left to right across the inner area.
type gaugeView struct {
	*tview.Box
	segments []gaugeSegment
	caption  string
}

func (f DefaultFactory) newGauge(geom layout.RegionGeometry, spec GaugeSpec) (Widget, error) {
	if len(spec.Segments) == 0 {
		return nil, fmt.Errorf("gauge needs at least one segment")
	}
	g := &gaugeView{Box: tview.NewBox(), caption: spec.Caption}
	total := 0.0
	for i, s := range spec.Segments {
		if math.IsNaN(s.Percent) || s.Percent < 0 || s.Percent > 100 {
			return nil, fmt.Errorf("gauge segment %d percent %v out of range", i, s.Percent)
		}
		c, err := ParseColor(s.Color)
		if err != nil {
			return nil, err
		}
		total += s.Percent
		g.segments = append(g.segments, gaugeSegment{percent: s.Percent, color: c})
	}
	if total > 100.01 {
		return nil, fmt.Errorf("gauge segments sum to %.2f%%", total)
	}
	f.frame(g.Box, spec.Title)
	return &handle{Primitive: g, geom: geom, model: spec}, nil
}

func (g *gaugeView) Draw(screen tcell.Screen) {
	g.Box.DrawForSubclass(screen, g)
	x, y, width, height := g.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}
	barHeight := height
	if g.caption != "" && height > 1 {
		barHeight--
	}
	pos := x
	for _, s := range g.segments {
		w := int(math.Round(s.percent / 100 * float64(width)))
		if pos+w > x+width {
			w = x + width - pos
		}
		if w <= 0 {
			continue
		}
		fill(screen, pos, y, w, barHeight, ' ', tcell.StyleDefault.Background(s.color))
		label := strconv.FormatFloat(s.percent, 'f', 2, 64) + "%"
		printCentered(screen, pos, y+barHeight/2, w, label, tcell.StyleDefault.Background(s.color).Foreground(tcell.ColorBlack))
		pos += w
	}
	if barHeight < height {
		printCentered(screen, x, y+height-1, width, g.caption, tcell.StyleDefault)
	}
}

// barView draws one vertical bar per label, bottom aligned.
type barView struct {
	*tview.Box
	spec  BarSpec
	color tcell.Color
}

func (f DefaultFactory) newBar(geom layout.RegionGeometry, spec BarSpec) (Widget, error) {
	if len(spec.Labels) != len(spec.Values) {
		return nil, fmt.Errorf("bar chart has %d labels but %d values", len(spec.Labels), len(spec.Values))
	}
	if spec.BarWidth <= 0 {
		return nil, fmt.Errorf("bar width must be positive, got %d", spec.BarWidth)
	}
	if spec.BarSpacing < 0 || spec.XOffset < 0 {
		return nil, fmt.Errorf("bar spacing and offset must be non-negative")
	}
	if spec.MaxValue <= 0 {
		spec.MaxValue = 100
	}
	for i, v := range spec.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("bar %d value %v is not a finite non-negative number", i, v)
		}
	}
	c, err := ParseColor(spec.Color)
	if err != nil {
		return nil, err
	}
	if c == tcell.ColorDefault {
		c = tcell.ColorBlue
	}
	b := &barView{Box: tview.NewBox(), spec: spec, color: c}
	f.frame(b.Box, spec.Title)
	return &handle{Primitive: b, geom: geom, model: spec}, nil
}

func (b *barView) Draw(screen tcell.Screen) {
	b.Box.DrawForSubclass(screen, b)
	x, y, width, height := b.GetInnerRect()
	if width <= 0 || height < 2 {
		return
	}
	chart := height - 1
	barStyle := tcell.StyleDefault.Background(b.color).Foreground(tcell.ColorWhite)
	pos := x + b.spec.XOffset
	for i, v := range b.spec.Values {
		w := b.spec.BarWidth
		if pos+w > x+width {
			break
		}
		h := int(math.Round(math.Min(v, b.spec.MaxValue) / b.spec.MaxValue * float64(chart)))
		if h < 1 {
			h = 1
		}
		fill(screen, pos, y+chart-h, w, h, ' ', barStyle)
		printCentered(screen, pos, y+chart-1, w, strconv.FormatFloat(v, 'f', b.spec.Precision, 64), barStyle)
		printCentered(screen, pos, y+chart, w, b.spec.Labels[i], tcell.StyleDefault)
		pos += w + b.spec.BarSpacing
	}
}

// donutView draws a ring filled clockwise from twelve o'clock, with the
// percentage and caption in the middle.
type donutView struct {
	*tview.Box
	percent  float64
	color    tcell.Color
	caption  []string
	arcWidth float64
}

func (f DefaultFactory) newDonut(geom layout.RegionGeometry, spec DonutSpec) (Widget, error) {
	if math.IsNaN(spec.Percent) || spec.Percent < 0 || spec.Percent > 1 {
		return nil, fmt.Errorf("donut percent %v outside [0,1]", spec.Percent)
	}
	c, err := ParseColor(spec.Color)
	if err != nil {
		return nil, err
	}
	arc := spec.ArcWidth
	if arc <= 0 {
		arc = 2
	}
	d := &donutView{Box: tview.NewBox(), percent: spec.Percent, color: c, caption: spec.Caption, arcWidth: float64(arc)}
	f.frame(d.Box, spec.Title)
	return &handle{Primitive: d, geom: geom, model: spec}, nil
}

func (d *donutView) Draw(screen tcell.Screen) {
	d.Box.DrawForSubclass(screen, d)
	x, y, width, height := d.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}
	// Terminal cells are about twice as tall as wide, so x distances are halved.
	cx := float64(x) + float64(width)/2
	cy := float64(y) + float64(height)/2
	radius := math.Min(float64(height)/2, float64(width)/4)
	inner := math.Max(radius-d.arcWidth, 0)
	filled := tcell.StyleDefault.Foreground(d.color)
	empty := tcell.StyleDefault.Foreground(tcell.ColorDimGray)
	sweep := d.percent * 2 * math.Pi
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			dx := (float64(col) + 0.5 - cx) / 2
			dy := float64(row) + 0.5 - cy
			dist := math.Hypot(dx, dy)
			if dist > radius || dist < inner {
				continue
			}
			angle := math.Atan2(dx, -dy)
			if angle < 0 {
				angle += 2 * math.Pi
			}
			if angle <= sweep && d.percent > 0 {
				screen.SetContent(col, row, '█', nil, filled)
			} else {
				screen.SetContent(col, row, '░', nil, empty)
			}
		}
	}
	mid := y + height/2 - (len(d.caption)+1)/2
	label := strconv.FormatFloat(d.percent*100, 'f', 0, 64) + "%"
	printCentered(screen, x, mid, width, label, filled.Bold(true))
	for i, line := range d.caption {
		if mid+1+i >= y+height {
			break
		}
		printCentered(screen, x, mid+1+i, width, line, tcell.StyleDefault)
	}
}
