package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"trikdash/config"
	derrors "trikdash/internal/errors"
)

// Version is set via ldflags at build time.
var Version = "dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	dbPath     string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit code: 0 on a clean
// quit, 1 on any error.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprint(stderr, err.Error())
		if !strings.HasSuffix(err.Error(), "\n") {
			fmt.Fprintln(stderr)
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "trikdash",
		Short: "Live terminal dashboard for an on-device metric database",
		Long: `Render the metrics an on-device collector writes to SQLite as a live
terminal dashboard: system info, uptime, memory, per-core CPU, battery,
processes and a location map. Each panel refreshes on its own cadence.

Quit with q, Esc or Ctrl-C.

Examples:
  trikdash
  trikdash --db ./sqlite/db/Trik.db
  trikdash --config ~/.config/trikdash.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDashboard(ctx, cfg, dashboardOptions{
				Stdout: stdout,
				Stderr: stderr,
				IsTTY:  isStdoutTTY,
			})
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "metric database path (overrides store.path)")

	root.AddCommand(newCheckCmd(flags, stdout))
	root.AddCommand(newSeedCmd(flags, stdout))
	root.AddCommand(newDumpCmd(flags, stdout))
	root.AddCommand(newVersionCmd(stdout))
	return root
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "trikdash %s\n", Version)
			fmt.Fprintf(stdout, "go: %s\n", runtime.Version())
			fmt.Fprintf(stdout, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig resolves the config file and applies --db.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(flags.configPath))
	if err != nil {
		return nil, err
	}
	if db := strings.TrimSpace(flags.dbPath); db != "" {
		cfg.Store.Path = db
	}
	return cfg, nil
}

// Purpose: Detect whether stdout is an interactive terminal.
// Key aspects: Uses term.IsTerminal on stdout fd.
// Upstream: root command.
// Downstream: term.IsTerminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func startupError(err error, message, suggestion string) error {
	if derrors.IsCode(err, derrors.ErrConfig) || derrors.IsCode(err, derrors.ErrStartup) {
		return err
	}
	return derrors.WrapWithCode(err, derrors.ErrStartup, message, suggestion)
}
