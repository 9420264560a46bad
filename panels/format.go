package panels

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"trikdash/metricstore"
	"trikdash/ui"
)

const processNameWidth = 20

var infoPadding = ui.Padding{Top: 2, Bottom: 1, Left: 5, Right: 5}

// FormatSystem renders the static device description.
func FormatSystem(s metricstore.System) (ui.Spec, error) {
	return ui.TextSpec{
		Title: "System Info",
		Lines: []string{
			"Operating System: " + s.OS,
			"",
			"Name:             " + s.CodeName,
			"",
			"Version:          " + s.Version,
			"",
			"Processor:        " + s.CPUSignature,
		},
		Padding: infoPadding,
	}, nil
}

// FormatStats renders the newest SystemData sample.
func FormatStats(s metricstore.SystemStats) (ui.Spec, error) {
	return ui.TextSpec{
		Title: "System Stats",
		Lines: []string{
			"Up time:   " + UptimeString(s.UpTime),
			"",
			"Processes: " + humanize.Comma(int64(s.Procs)),
			"",
			"Services:  " + humanize.Comma(int64(s.Servs)),
			"",
			"Threads:   " + humanize.Comma(int64(s.Threads)),
		},
		Color:   "yellow",
		Padding: infoPadding,
	}, nil
}

// UptimeString spells out a duration in seconds as
// "D days, H hours, M minutes, S seconds.".
func UptimeString(total int64) string {
	if total < 0 {
		total = 0
	}
	days := total / 86400
	total %= 86400
	hours := total / 3600
	total %= 3600
	return fmt.Sprintf("%d days, %d hours, %d minutes, %d seconds.", days, hours, total/60, total%60)
}

// HMS formats seconds as unpadded "H:m:s".
func HMS(total int64) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%d:%d", total/3600, (total%3600)/60, total%60)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FormatMemory stacks available (green) over used (red) memory.
func FormatMemory(m metricstore.Memory) (ui.Spec, error) {
	if m.Total <= 0 {
		return nil, fmt.Errorf("memory total %d is not positive", m.Total)
	}
	if m.Available < 0 || m.Available > m.Total {
		return nil, fmt.Errorf("memory available %d outside [0,%d]", m.Available, m.Total)
	}
	avail := round(float64(m.Available)/float64(m.Total)*100, 2)
	used := round(100-avail, 2)
	return ui.GaugeSpec{
		Title: "Memory",
		Segments: []ui.Segment{
			{Percent: avail, Color: "green"},
			{Percent: used, Color: "red"},
		},
		Caption: fmt.Sprintf("%s free of %s", humanize.IBytes(uint64(m.Available)), humanize.IBytes(uint64(m.Total))),
	}, nil
}

// CoreUsage is the busy share of one core's cumulative ticks, in percent.
func CoreUsage(c metricstore.CPUCore) float64 {
	busy := c.UserTicks + c.SysTicks
	total := busy + c.IdleTicks
	if total <= 0 {
		return 0
	}
	return round(float64(busy)/float64(total)*100, 1)
}

// FormatCPU draws one bar per core of the newest snapshot. Rows arrive
// newest first, ordered by core; row i is kept only when it reports core i.
func FormatCPU(cores []metricstore.CPUCore) (ui.Spec, error) {
	spec := ui.BarSpec{
		Title:      "CPU Core Utilization (%)",
		Labels:     []string{},
		Values:     []float64{},
		Precision:  1,
		MaxValue:   100,
		BarWidth:   5,
		BarSpacing: 3,
		XOffset:    1,
		Color:      "blue",
	}
	for i, c := range cores {
		if c.CoreNum != i {
			continue
		}
		spec.Labels = append(spec.Labels, strconv.Itoa(c.CoreNum))
		spec.Values = append(spec.Values, CoreUsage(c))
	}
	return spec, nil
}

// BatteryColor picks the donut color for a charge fraction.
func BatteryColor(capacity float64) string {
	switch {
	case capacity <= 0.25:
		return "red"
	case capacity <= 0.75:
		return "yellow"
	default:
		return "green"
	}
}

// FormatBattery renders the charge donut with temperature and charging state.
func FormatBattery(p metricstore.Power) (ui.Spec, error) {
	if math.IsNaN(p.Capacity) || p.Capacity < 0 || p.Capacity > 1 {
		return nil, fmt.Errorf("battery capacity %v outside [0,1]", p.Capacity)
	}
	charging := "no"
	if p.Charging {
		charging = "yes"
	}
	return ui.DonutSpec{
		Title:   "Battery Info",
		Percent: p.Capacity,
		Color:   BatteryColor(p.Capacity),
		Caption: []string{
			"Temperature: " + strconv.FormatFloat(p.Temperature, 'f', -1, 64) + " (°C)",
			"Charging:    " + charging,
		},
		ArcWidth: 3,
	}, nil
}

// FormatProcesses lists the processes of the newest snapshot.
func FormatProcesses(procs []metricstore.Process) (ui.Spec, error) {
	spec := ui.TableSpec{
		Title:         "Active Processes",
		Headers:       []string{"Process", "Up Time (H:m:s)", "CPU (%)"},
		Rows:          [][]string{},
		ColumnWidths:  []int{23, 16, 10},
		ColumnSpacing: 1,
		Color:         "green",
	}
	if len(procs) == 0 {
		return spec, nil
	}
	newest := procs[0].Timestamp
	for _, p := range procs[1:] {
		if p.Timestamp > newest {
			newest = p.Timestamp
		}
	}
	for _, p := range procs {
		if p.Timestamp != newest {
			continue
		}
		spec.Rows = append(spec.Rows, []string{
			runewidth.Truncate(p.Name, processNameWidth, ""),
			HMS(p.UpTime),
			strconv.FormatFloat(p.CPUUsage*100, 'f', 4, 64),
		})
	}
	return spec, nil
}

// MapBase is the backdrop of the location panel.
func MapBase() ui.MapSpec {
	return ui.MapSpec{Title: "IP Location"}
}

// LocationMarker marks the device position.
func LocationMarker(loc metricstore.Location) (ui.Marker, error) {
	mk := ui.Marker{Lat: loc.Lat, Lon: loc.Lon, Color: "yellow", Char: "X"}
	if err := ui.ValidateMarker(mk); err != nil {
		return ui.Marker{}, err
	}
	return mk, nil
}
