// Package panels is the dashboard's panel catalogue: where each panel sits,
// how often it refreshes, and how metric rows become display models.
package panels

import (
	"context"
	"fmt"
	"time"

	"trikdash/config"
	derrors "trikdash/internal/errors"
	"trikdash/layout"
	"trikdash/metricstore"
	"trikdash/refresh"
)

// Source is the data provider behind every panel. *metricstore.Store
// satisfies it.
type Source interface {
	System(ctx context.Context) (metricstore.System, error)
	SystemStats(ctx context.Context) (metricstore.SystemStats, error)
	Power(ctx context.Context) (metricstore.Power, error)
	Memory(ctx context.Context) (metricstore.Memory, error)
	CPU(ctx context.Context) ([]metricstore.CPUCore, error)
	Processes(ctx context.Context) ([]metricstore.Process, error)
	Location(ctx context.Context) (metricstore.Location, error)
}

var _ Source = (*metricstore.Store)(nil)

// Definition places one catalogue entry.
type Definition struct {
	Name     string
	Address  layout.CellAddress
	Interval time.Duration // zero for static panels
	Static   bool
}

func addr(row, col, rowSpan, colSpan int) layout.CellAddress {
	return layout.CellAddress{Row: row, Col: col, RowSpan: rowSpan, ColSpan: colSpan}
}

// Defaults returns the built-in 12x12 layout.
func Defaults() []Definition {
	return []Definition{
		{Name: "system", Address: addr(0, 0, 3, 5), Static: true},
		{Name: "stats", Address: addr(3, 0, 3, 5), Interval: 200 * time.Millisecond},
		{Name: "map", Address: addr(6, 0, 6, 5), Interval: 500 * time.Millisecond},
		{Name: "memory", Address: addr(0, 5, 2, 4), Interval: 500 * time.Millisecond},
		{Name: "cpu", Address: addr(2, 5, 5, 4), Interval: 200 * time.Millisecond},
		{Name: "battery", Address: addr(7, 5, 5, 4), Interval: 500 * time.Millisecond},
		{Name: "logo", Address: addr(0, 9, 4, 3), Static: true},
		{Name: "processes", Address: addr(4, 9, 8, 3), Interval: 2000 * time.Millisecond},
	}
}

// Names lists the catalogue in layout order.
func Names() []string {
	defs := Defaults()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// Configure applies the config's panel overrides to defs and drops disabled
// panels. Unknown names and intervals on static panels are CONFIG errors.
func Configure(defs []Definition, cfg *config.Config) ([]Definition, error) {
	known := make([]string, len(defs))
	for i, d := range defs {
		known[i] = d.Name
	}
	if err := cfg.CheckPanels(known); err != nil {
		return nil, err
	}
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		o, ok := cfg.Panels[d.Name]
		if !ok {
			out = append(out, d)
			continue
		}
		if o.Enabled != nil && !*o.Enabled {
			continue
		}
		if o.Row != nil {
			d.Address.Row = *o.Row
		}
		if o.Col != nil {
			d.Address.Col = *o.Col
		}
		if o.RowSpan != nil {
			d.Address.RowSpan = *o.RowSpan
		}
		if o.ColSpan != nil {
			d.Address.ColSpan = *o.ColSpan
		}
		if o.IntervalMS != nil {
			if d.Static {
				return nil, derrors.Configf("panel %q is drawn once; interval_ms does not apply", d.Name)
			}
			d.Interval = time.Duration(*o.IntervalMS) * time.Millisecond
		}
		out = append(out, d)
	}
	return out, nil
}

// Build turns a definition into a schedulable panel. The system panel is
// fetched here, once; failing to read it is a STARTUP error.
func Build(ctx context.Context, src Source, def Definition) (*refresh.Panel, error) {
	switch def.Name {
	case "system":
		sys, err := src.System(ctx)
		if err != nil {
			return nil, derrors.WrapWithCode(err, derrors.ErrStartup, "could not read the System table",
				"Check that the collector has written at least one System row.")
		}
		spec, err := FormatSystem(sys)
		if err != nil {
			return nil, derrors.Wrap(err, derrors.ErrStartup, "could not format system info")
		}
		return refresh.NewStaticPanel(def.Name, def.Address, spec), nil
	case "logo":
		return refresh.NewStaticPanel(def.Name, def.Address, Logo()), nil
	case "stats":
		return refresh.NewPanel(def.Name, def.Interval, def.Address, src.SystemStats, FormatStats), nil
	case "memory":
		return refresh.NewPanel(def.Name, def.Interval, def.Address, src.Memory, FormatMemory), nil
	case "cpu":
		return refresh.NewPanel(def.Name, def.Interval, def.Address, src.CPU, FormatCPU), nil
	case "battery":
		return refresh.NewPanel(def.Name, def.Interval, def.Address, src.Power, FormatBattery), nil
	case "processes":
		return refresh.NewPanel(def.Name, def.Interval, def.Address, src.Processes, FormatProcesses), nil
	case "map":
		return refresh.NewOverlayPanel(def.Name, def.Interval, def.Address, MapBase(), src.Location, LocationMarker), nil
	default:
		return nil, derrors.Configf("no panel named %q", def.Name)
	}
}

// Assemble builds every definition and registers it with sched.
func Assemble(ctx context.Context, sched *refresh.Scheduler, src Source, defs []Definition) error {
	for _, def := range defs {
		p, err := Build(ctx, src, def)
		if err != nil {
			return err
		}
		if err := sched.Add(p); err != nil {
			return fmt.Errorf("panel %s: %w", def.Name, err)
		}
	}
	return nil
}
