package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	derrors "trikdash/internal/errors"
	"trikdash/metricstore"
)

var demoProcesses = []string{
	"system_server", "com.android.systemui", "surfaceflinger", "com.google.android.gms.persistent",
	"com.android.phone", "logd", "init", "zygote64", "com.android.launcher3", "mediaserver",
}

type seedOptions struct {
	Path    string
	Samples int
	Cores   int
	Force   bool
	Now     time.Time
	Seed    uint64
}

func newSeedCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a demo metric database",
		Long: `Create a database with the collector's schema and a few minutes of
synthetic samples, so the dashboard can run without a device.

Examples:
  trikdash seed --db ./sqlite/db/Trik.db
  trikdash seed --db /tmp/demo.db --samples 300 --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(flags.dbPath)
			if path == "" {
				cfg, err := loadConfig(flags)
				if err != nil {
					return err
				}
				path = cfg.Store.Path
			}
			opts.Path = path
			opts.Now = time.Now()
			summary, err := seedDatabase(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, summary)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Samples, "samples", 60, "samples per table")
	cmd.Flags().IntVar(&opts.Cores, "cores", 4, "CPU cores to simulate")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "replace an existing database")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed")
	return cmd
}

// Purpose: Populate a fresh database with one sample per second ending at opts.Now.
// Key aspects: Refuses to touch an existing file unless Force is set.
// Upstream: seed command, tests.
// Downstream: metricstore.Writer.
func seedDatabase(ctx context.Context, opts seedOptions) (string, error) {
	if opts.Samples <= 0 || opts.Cores <= 0 {
		return "", derrors.Configf("seed needs at least one sample and one core (got %d samples, %d cores)", opts.Samples, opts.Cores)
	}
	if _, err := os.Stat(opts.Path); err == nil {
		if !opts.Force {
			return "", derrors.New(derrors.ErrConfig, "database already exists: "+opts.Path, "Pass --force to replace it.")
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(opts.Path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("seed: remove %s: %w", opts.Path+suffix, err)
			}
		}
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("seed: create %s: %w", dir, err)
		}
	}

	w, err := metricstore.Create(ctx, opts.Path)
	if err != nil {
		return "", err
	}
	defer w.Close()

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	const systemID = 1
	if err := w.InsertSystem(ctx, metricstore.System{
		ID: systemID, Owner: "demo", OS: "Android", CodeName: "Pie", Version: "9",
		CPUSignature: "AArch64 Processor rev 4 (aarch64)", CPUCores: opts.Cores, CPUVendFreq: 2_000_000,
	}); err != nil {
		return "", err
	}

	const total = int64(4 << 30)
	end := opts.Now.Unix()
	start := end - int64(opts.Samples) + 1
	boot := start - 3*86400 - 7*3600
	ticks := make([][3]int64, opts.Cores)
	rows := 0
	for ts := start; ts <= end; ts++ {
		if err := w.InsertSystemStats(ctx, systemID, metricstore.SystemStats{
			Timestamp: ts, BootTime: boot, UpTime: ts - boot,
			Procs: 380 + rng.IntN(40), Servs: 120 + rng.IntN(8), Threads: 2900 + rng.IntN(300),
		}); err != nil {
			return "", err
		}
		if err := w.InsertMemory(ctx, systemID, metricstore.Memory{
			Timestamp: ts, Available: total/4 + rng.Int64N(total/2), Total: total,
		}); err != nil {
			return "", err
		}
		capacity := 0.9 - 0.8*float64(ts-start)/float64(opts.Samples)
		if err := w.InsertPower(ctx, systemID, metricstore.Power{
			Timestamp: ts, Capacity: capacity, CapacityTime: float64(ts - start),
			Temperature: 30 + float64(rng.IntN(60))/10, Charging: capacity < 0.3,
		}); err != nil {
			return "", err
		}
		for core := 0; core < opts.Cores; core++ {
			ticks[core][0] += int64(10 + rng.IntN(60))
			ticks[core][1] += int64(5 + rng.IntN(20))
			ticks[core][2] += int64(20 + rng.IntN(80))
			if err := w.InsertCPU(ctx, systemID, metricstore.CPUCore{
				Timestamp: ts, CoreNum: core, CurrFreq: 1_200_000 + int64(rng.IntN(800_000)), MaxFreq: 2_000_000,
				UserTicks: ticks[core][0], SysTicks: ticks[core][1], IdleTicks: ticks[core][2],
			}); err != nil {
				return "", err
			}
		}
		for i, name := range demoProcesses {
			if err := w.InsertProcess(ctx, systemID, metricstore.Process{
				Timestamp: ts, PID: int64(100 + i*37), Name: name, User: "system",
				StartTime: boot + int64(i*60), UpTime: ts - boot - int64(i*60), CPUUsage: rng.Float64() * 0.05,
			}); err != nil {
				return "", err
			}
		}
		rows++
	}
	return fmt.Sprintf("Seeded %s: %s samples, %d cores, %d processes", opts.Path, humanize.Comma(int64(rows)), opts.Cores, len(demoProcesses)), nil
}
