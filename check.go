package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trikdash/config"
	derrors "trikdash/internal/errors"
	"trikdash/layout"
	"trikdash/metricstore"
	"trikdash/panels"
	"trikdash/sqliteutil"
)

func newCheckCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	var skipDB bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate config and show where each panel goes",
		Long: `Load the configuration, resolve every enabled panel onto the grid and
probe the metric database without opening the dashboard.

Examples:
  trikdash check
  trikdash check --config trikdash.yaml --skip-db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return checkConfig(cfg, stdout, !skipDB)
		},
	}
	cmd.Flags().BoolVar(&skipDB, "skip-db", false, "do not probe the metric database")
	return cmd
}

// Purpose: Report the resolved layout and database health.
// Key aspects: Fails on the first config, geometry or probe error.
// Upstream: check command.
// Downstream: panels.Configure, layout.Resolve, sqliteutil.Probe.
func checkConfig(cfg *config.Config, out io.Writer, probe bool) error {
	cfg.Fprint(out)
	if _, err := buildFactory(cfg.UI); err != nil {
		return err
	}
	defs, err := panels.Configure(panels.Defaults(), cfg)
	if err != nil {
		return err
	}
	grid := gridFromConfig(cfg)
	if err := grid.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PANEL\tCELL\tGEOMETRY\tREFRESH")
	for _, d := range defs {
		geom, err := layout.Resolve(grid, d.Address)
		if err != nil {
			return fmt.Errorf("panel %s: %w", d.Name, err)
		}
		every := "once"
		if !d.Static {
			every = d.Interval.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Address, geom, every)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !probe {
		return nil
	}
	res, err := sqliteutil.Probe(cfg.Store.Path, cfg.ProbeTimeout(), metricstore.Tables...)
	if err != nil {
		return startupError(err, "metric database unavailable: "+cfg.Store.Path, "Check store.path or --db.")
	}
	if !res.Healthy() {
		return derrors.New(derrors.ErrStartup,
			fmt.Sprintf("metric database %s is missing tables: %s", cfg.Store.Path, strings.Join(res.Missing, ", ")), "")
	}
	fmt.Fprintf(out, "\nDatabase %s: ok (%s)\n", cfg.Store.Path, res.Elapsed.Round(time.Microsecond))
	return nil
}

func gridFromConfig(cfg *config.Config) layout.GridSpec {
	return layout.GridSpec{
		Rows:           cfg.Layout.Rows,
		Cols:           cfg.Layout.Cols,
		MarginPercent:  cfg.Layout.MarginPercent,
		SpacingPercent: cfg.Layout.SpacingPercent,
	}
}
