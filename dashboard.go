package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trikdash/config"
	derrors "trikdash/internal/errors"
	"trikdash/internal/logger"
	"trikdash/metricstore"
	"trikdash/panels"
	"trikdash/refresh"
	"trikdash/sqliteutil"
	"trikdash/stats"
	"trikdash/ui"
)

const defaultSummaryInterval = time.Minute

type dashboardOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	// IsTTY gates the dashboard; nil skips the check.
	IsTTY func() bool
	// Terminal replaces the real terminal, e.g. a simulation screen.
	Terminal tcell.Screen
	// SummaryInterval is how often panel outcome counts go to the log file.
	SummaryInterval time.Duration
}

// dashboard is one assembled run: the store, the screen, the scheduler
// driving every panel, and the ambient logging and metrics around them.
type dashboard struct {
	cfg      *config.Config
	opts     dashboardOptions
	store    *metricstore.Store
	screen   *ui.Screen
	sched    *refresh.Scheduler
	tracker  *stats.Tracker
	registry *prometheus.Registry
	fanout   *logFanout
	prevLog  io.Writer

	metricsSrv *http.Server
	metricsLn  net.Listener
}

// runDashboard assembles the dashboard and blocks until the user quits or
// ctx is cancelled.
func runDashboard(ctx context.Context, cfg *config.Config, opts dashboardOptions) error {
	d, err := assembleDashboard(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer d.close()
	return d.run(ctx)
}

// Purpose: Build every component in dependency order.
// Key aspects: Any failure here is a CONFIG or STARTUP error; partial state is released.
// Upstream: runDashboard.
// Downstream: openStore, panels.Assemble, ui.NewScreen, refresh.New.
func assembleDashboard(ctx context.Context, cfg *config.Config, opts dashboardOptions) (_ *dashboard, err error) {
	if opts.IsTTY != nil && !opts.IsTTY() {
		return nil, derrors.New(derrors.ErrStartup, "dashboard needs an interactive terminal",
			"Run it from a terminal, or use `trikdash dump` for non-interactive output.")
	}
	if opts.SummaryInterval <= 0 {
		opts.SummaryInterval = defaultSummaryInterval
	}
	d := &dashboard{cfg: cfg, opts: opts, tracker: stats.NewTracker(), prevLog: log.Writer()}
	defer func() {
		if err != nil {
			d.release()
		}
	}()

	fanout, logErr := setupLogging(cfg.Logging, opts.Stderr)
	d.fanout = fanout
	log.SetFlags(0)
	log.SetOutput(fanout)
	if logErr != nil {
		log.Printf("Logging: file sink disabled: %v", logErr)
	}

	defs, err := panels.Configure(panels.Defaults(), cfg)
	if err != nil {
		return nil, err
	}
	factory, err := buildFactory(cfg.UI)
	if err != nil {
		return nil, err
	}
	if d.store, err = openStore(cfg); err != nil {
		return nil, err
	}

	d.registry = prometheus.NewRegistry()
	uiMetrics := ui.NewMetrics()
	registerScreenMetrics(d.registry, uiMetrics)
	d.screen = ui.NewScreen(ui.ScreenOptions{
		TargetFPS: cfg.UI.TargetFPS,
		Terminal:  opts.Terminal,
		Metrics:   uiMetrics,
	})

	d.sched, err = refresh.New(refresh.Options{
		Grid:             gridFromConfig(cfg),
		Surface:          d.screen,
		Factory:          factory,
		Logger:           logger.New("[refresh]", cfg.Logging.Debug),
		Metrics:          refresh.NewMetrics(d.registry),
		Stats:            d.tracker,
		FetchTimeout:     cfg.FetchTimeout(),
		ErrorLogInterval: cfg.ErrorLogInterval(),
	})
	if err != nil {
		return nil, err
	}
	if err := panels.Assemble(ctx, d.sched, d.store, defs); err != nil {
		return nil, startupError(err, "could not assemble panels", "")
	}
	if err := d.listenMetrics(); err != nil {
		return nil, err
	}
	log.Printf("Dashboard ready: %d panels from %s", len(defs), cfg.Store.Path)
	return d, nil
}

// openStore probes the database before opening it so a missing or corrupt
// file fails startup with a clear message.
func openStore(cfg *config.Config) (*metricstore.Store, error) {
	const hint = "Check store.path or --db. `trikdash seed --db <path>` writes a demo database."
	res, err := sqliteutil.Probe(cfg.Store.Path, cfg.ProbeTimeout(), metricstore.Tables...)
	if err != nil {
		return nil, derrors.WrapWithCode(err, derrors.ErrStartup, "metric database unavailable: "+cfg.Store.Path, hint)
	}
	if !res.Healthy() {
		return nil, derrors.New(derrors.ErrStartup,
			fmt.Sprintf("metric database %s is missing tables: %s", cfg.Store.Path, strings.Join(res.Missing, ", ")), hint)
	}
	store, err := metricstore.Open(cfg.Store.Path, metricstore.Location{Lat: cfg.Location.Lat, Lon: cfg.Location.Lon})
	if err != nil {
		return nil, derrors.WrapWithCode(err, derrors.ErrStartup, "metric database unavailable: "+cfg.Store.Path, hint)
	}
	return store, nil
}

func buildFactory(cfg config.UIConfig) (ui.DefaultFactory, error) {
	f := ui.NewDefaultFactory()
	f.HideBorder = cfg.HideBorder
	if cfg.BorderColor != "" {
		c, err := ui.ParseColor(cfg.BorderColor)
		if err != nil {
			return f, derrors.Configf("ui.border_color: %v", err)
		}
		f.BorderColor = c
	}
	if cfg.TitleColor != "" {
		c, err := ui.ParseColor(cfg.TitleColor)
		if err != nil {
			return f, derrors.Configf("ui.title_color: %v", err)
		}
		f.TitleColor = c
	}
	return f, nil
}

func registerScreenMetrics(reg prometheus.Registerer, m *ui.Metrics) {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "trikdash_widgets_attached",
		Help: "Widgets currently on screen",
	}, func() float64 { return float64(m.Attached()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "trikdash_frames_total",
		Help: "Update batches applied on the UI loop",
	}, func() float64 { return float64(m.Frames()) })
}

// listenMetrics binds the optional /metrics endpoint. Binding happens
// during assembly so a busy port is a startup error.
func (d *dashboard) listenMetrics() error {
	addr := strings.TrimSpace(d.cfg.Metrics.Listen)
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return derrors.WrapWithCode(err, derrors.ErrStartup, "metrics listener failed on "+addr, "Change metrics.listen or leave it empty.")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	})
	d.metricsLn = ln
	d.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := d.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics: server stopped: %v", err)
		}
	}()
	log.Printf("Metrics: serving http://%s/metrics", ln.Addr())
	return nil
}

// Purpose: Own the terminal until quit.
// Key aspects: Console logging is detached while the UI is up; panels start only after the first frame.
// Upstream: runDashboard.
// Downstream: ui.Screen.Run, refresh.Scheduler.Start/Stop.
func (d *dashboard) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.fanout.SetConsoleSink(nil, false)
	defer d.fanout.SetConsoleSink(d.opts.Stderr, true)

	runErr := make(chan error, 1)
	go func() { runErr <- d.screen.Run() }()

	select {
	case <-d.screen.Ready():
	case err := <-runErr:
		if err != nil {
			return derrors.Wrap(err, derrors.ErrStartup, "terminal could not be initialized")
		}
		return nil
	case <-ctx.Done():
		d.screen.Stop()
		return nil
	}

	if err := d.sched.Start(ctx); err != nil {
		d.screen.Stop()
		<-runErr
		return err
	}
	go d.summaryLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			log.Printf("Shutting down: %v", context.Cause(ctx))
			d.screen.Stop()
		case <-d.screen.Done():
		}
	}()

	err := <-runErr
	cancel()
	d.sched.Stop()
	return err
}

func (d *dashboard) summaryLoop(ctx context.Context) {
	ticker := time.NewTicker(d.opts.SummaryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, line := range d.tracker.SnapshotLines() {
				d.fanout.WriteFileOnlyLine(line, now)
			}
		}
	}
}

// close prints the outcome summary and releases everything.
func (d *dashboard) close() {
	if d.opts.Stdout != nil {
		for _, line := range d.tracker.SnapshotLines() {
			fmt.Fprintln(d.opts.Stdout, line)
		}
	}
	now := time.Now()
	for _, line := range d.tracker.SnapshotLines() {
		d.fanout.WriteFileOnlyLine(line, now)
	}
	d.release()
}

func (d *dashboard) release() {
	if d.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = d.metricsSrv.Shutdown(ctx)
		cancel()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.fanout != nil {
		_ = d.fanout.Close()
	}
	if d.prevLog != nil {
		log.SetOutput(d.prevLog)
		log.SetFlags(log.LstdFlags)
	}
}
