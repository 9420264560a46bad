package ui

import (
	"fmt"
	"strings"

	"trikdash/layout"

	"github.com/gdamore/tcell/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"
)

// Kind names a widget family.
type Kind string

const (
	KindText  Kind = "text"
	KindGauge Kind = "gauge"
	KindBar   Kind = "bar"
	KindDonut Kind = "donut"
	KindTable Kind = "table"
	KindMap   Kind = "map"
)

// Spec is a typed display model. A Spec is a value: once handed to a
// Factory it is never mutated.
type Spec interface {
	Kind() Kind
}

// Padding is the inner spacing of a text panel, in cells.
type Padding struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

// TextSpec is a bordered block of preformatted lines.
type TextSpec struct {
	Title   string   `json:"title,omitempty"`
	Lines   []string `json:"lines"`
	Color   string   `json:"color,omitempty"`
	Padding Padding  `json:"padding"`
}

func (TextSpec) Kind() Kind { return KindText }

// Segment is one stacked slice of a gauge.
type Segment struct {
	Percent float64 `json:"percent"`
	Color   string  `json:"color"`
}

// GaugeSpec is a horizontal stacked percentage gauge.
type GaugeSpec struct {
	Title    string    `json:"title,omitempty"`
	Segments []Segment `json:"segments"`
	Caption  string    `json:"caption,omitempty"`
}

func (GaugeSpec) Kind() Kind { return KindGauge }

// BarSpec is a vertical bar chart with one bar per label.
type BarSpec struct {
	Title      string    `json:"title,omitempty"`
	Labels     []string  `json:"labels"`
	Values     []float64 `json:"values"`
	Precision  int       `json:"precision"`
	MaxValue   float64   `json:"max_value"`
	BarWidth   int       `json:"bar_width"`
	BarSpacing int       `json:"bar_spacing"`
	XOffset    int       `json:"x_offset"`
	Color      string    `json:"color"`
}

func (BarSpec) Kind() Kind { return KindBar }

// DonutSpec is a ring filled clockwise from the top. Percent is a fraction
// in [0,1].
type DonutSpec struct {
	Title    string   `json:"title,omitempty"`
	Percent  float64  `json:"percent"`
	Color    string   `json:"color"`
	Caption  []string `json:"caption,omitempty"`
	ArcWidth int      `json:"arc_width"`
}

func (DonutSpec) Kind() Kind { return KindDonut }

// TableSpec is a fixed-width table with a header row.
type TableSpec struct {
	Title         string     `json:"title,omitempty"`
	Headers       []string   `json:"headers"`
	Rows          [][]string `json:"rows"`
	ColumnWidths  []int      `json:"column_widths"`
	ColumnSpacing int        `json:"column_spacing"`
	Color         string     `json:"color,omitempty"`
}

func (TableSpec) Kind() Kind { return KindTable }

// MapSpec is a world map backdrop. Markers are managed through
// MarkerOverlay after the widget exists.
type MapSpec struct {
	Title     string `json:"title,omitempty"`
	LandColor string `json:"land_color,omitempty"`
}

func (MapSpec) Kind() Kind { return KindMap }

// Marker is a point on a map widget.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Color string  `json:"color"`
	Char  string  `json:"char"`
}

var canonical = jsoniter.ConfigCompatibleWithStandardLibrary

// Fingerprint hashes a display model together with its geometry. Two
// identical models at the same place produce the same value, which lets the
// refresh loop skip a rebuild.
func Fingerprint(spec Spec, geom layout.RegionGeometry) (uint64, error) {
	if spec == nil {
		return 0, fmt.Errorf("fingerprint: nil display model")
	}
	h := xxh3.New()
	_, _ = h.WriteString(string(spec.Kind()))
	enc := canonical.NewEncoder(h)
	if err := enc.Encode(spec); err != nil {
		return 0, fmt.Errorf("fingerprint %s: %w", spec.Kind(), err)
	}
	if err := enc.Encode(geom); err != nil {
		return 0, fmt.Errorf("fingerprint geometry: %w", err)
	}
	return h.Sum64(), nil
}

// ParseColor resolves a color name ("yellow", "#ff8800"). The empty string
// means the terminal default.
func ParseColor(name string) (tcell.Color, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return tcell.ColorDefault, nil
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return tcell.ColorDefault, fmt.Errorf("unknown color %q", name)
	}
	return c, nil
}
