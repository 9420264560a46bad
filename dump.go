package main

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"trikdash/config"
	"trikdash/layout"
	"trikdash/panels"
	"trikdash/refresh"
)

var dumpJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// panelDump is one panel's entry in `trikdash dump` output.
type panelDump struct {
	Name     string          `json:"name"`
	Cell     string          `json:"cell"`
	Geometry string          `json:"geometry"`
	Interval string          `json:"interval"`
	Sample   *refresh.Sample `json:"sample,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func newDumpCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Fetch every panel once and print its display model as JSON",
		Long: `Run one fetch and format pass for every enabled panel and print the
resulting display models. Works without a terminal.

Examples:
  trikdash dump
  trikdash dump --db /tmp/demo.db | jq '.[].sample.model'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return dumpPanels(cmd.Context(), cfg, stdout)
		},
	}
}

// Purpose: Print each panel's current model without starting the UI.
// Key aspects: Per-panel fetch errors are reported inline; startup errors abort.
// Upstream: dump command.
// Downstream: panels.Build, refresh.Panel.Sample.
func dumpPanels(ctx context.Context, cfg *config.Config, out io.Writer) error {
	defs, err := panels.Configure(panels.Defaults(), cfg)
	if err != nil {
		return err
	}
	grid := gridFromConfig(cfg)
	if err := grid.Validate(); err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	dumps := make([]panelDump, 0, len(defs))
	for _, d := range defs {
		entry := panelDump{Name: d.Name, Cell: d.Address.String(), Interval: "once"}
		if !d.Static {
			entry.Interval = d.Interval.String()
		}
		geom, err := layout.Resolve(grid, d.Address)
		if err != nil {
			return fmt.Errorf("panel %s: %w", d.Name, err)
		}
		entry.Geometry = geom.String()

		p, err := panels.Build(ctx, store, d)
		if err != nil {
			return err
		}
		fctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout())
		sample, err := p.Sample(fctx)
		cancel()
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Sample = &sample
		}
		dumps = append(dumps, entry)
	}

	data, err := dumpJSON.MarshalIndent(dumps, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
