package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	derrors "trikdash/internal/errors"
)

// EnvPath overrides the config file location when --config is not given.
const EnvPath = "TRIK_CONFIG_PATH"

// DefaultPath is used when neither --config nor TRIK_CONFIG_PATH is set.
const DefaultPath = "trikdash.yaml"

// Config represents the complete dashboard configuration
type Config struct {
	Store    StoreConfig            `yaml:"store"`
	Layout   LayoutConfig           `yaml:"layout"`
	UI       UIConfig               `yaml:"ui"`
	Refresh  RefreshConfig          `yaml:"refresh"`
	Panels   map[string]PanelConfig `yaml:"panels"`
	Location LocationConfig         `yaml:"location"`
	Logging  LoggingConfig          `yaml:"logging"`
	Metrics  MetricsConfig          `yaml:"metrics"`

	// LoadedFrom is the file the values came from; empty when defaults were used.
	LoadedFrom string `yaml:"-"`
}

// StoreConfig points at the collector's SQLite database.
type StoreConfig struct {
	Path           string `yaml:"path"`
	ProbeTimeoutMS int    `yaml:"probe_timeout_ms"`
}

// LayoutConfig describes the percentage grid every panel is placed on.
type LayoutConfig struct {
	Rows           int     `yaml:"rows"`
	Cols           int     `yaml:"cols"`
	MarginPercent  float64 `yaml:"margin_percent"`
	SpacingPercent float64 `yaml:"spacing_percent"`
}

// UIConfig contains terminal rendering settings
type UIConfig struct {
	TargetFPS   int    `yaml:"target_fps"`
	BorderColor string `yaml:"border_color"`
	TitleColor  string `yaml:"title_color"`
	HideBorder  bool   `yaml:"hide_border"`
}

// RefreshConfig bounds a single panel refresh.
type RefreshConfig struct {
	FetchTimeoutMS          int `yaml:"fetch_timeout_ms"`
	ErrorLogIntervalSeconds int `yaml:"error_log_interval_seconds"`
}

// PanelConfig overrides one catalogue entry. Nil fields keep the built-in value.
type PanelConfig struct {
	Enabled    *bool `yaml:"enabled"`
	Row        *int  `yaml:"row"`
	Col        *int  `yaml:"col"`
	RowSpan    *int  `yaml:"row_span"`
	ColSpan    *int  `yaml:"col_span"`
	IntervalMS *int  `yaml:"interval_ms"`
}

// LocationConfig is the fixed position reported to the map panel.
type LocationConfig struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// LoggingConfig controls the daily log files.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	Debug         bool   `yaml:"debug"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is non-empty.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:           "sqlite/db/Trik.db",
			ProbeTimeoutMS: 2000,
		},
		Layout: LayoutConfig{Rows: 12, Cols: 12},
		UI: UIConfig{
			TargetFPS:   30,
			BorderColor: "darkcyan",
			TitleColor:  "white",
		},
		Refresh: RefreshConfig{
			FetchTimeoutMS:          1000,
			ErrorLogIntervalSeconds: 30,
		},
		Location: LocationConfig{Lat: 41.713267, Lon: -73.925709},
		Logging: LoggingConfig{
			Dir:           "data/logs",
			RetentionDays: 7,
		},
	}
}

// ResolvePath picks the config file: the explicit flag first, then TRIK_CONFIG_PATH,
// then DefaultPath.
func ResolvePath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	return DefaultPath
}

// Load loads configuration from a YAML file on top of Default. A missing file
// yields the defaults; a malformed or invalid one is a CONFIG error.
func Load(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, derrors.Wrap(fmt.Errorf("failed to read config file: %w", err), derrors.ErrConfig, "config unreadable: "+filename)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, derrors.WrapWithCode(fmt.Errorf("failed to parse config file: %w", err), derrors.ErrConfig,
			"config invalid: "+filename, "Check the YAML syntax and key names.")
	}
	cfg.LoadedFrom = filename
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component could run with. Panel names are
// checked separately by CheckPanels because the catalogue lives elsewhere.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return derrors.Configf("store.path is empty")
	}
	if c.Store.ProbeTimeoutMS <= 0 {
		return derrors.Configf("store.probe_timeout_ms must be > 0 (got %d)", c.Store.ProbeTimeoutMS)
	}
	if c.Layout.Rows <= 0 || c.Layout.Cols <= 0 {
		return derrors.Configf("layout rows and cols must be > 0 (got %dx%d)", c.Layout.Rows, c.Layout.Cols)
	}
	if c.UI.TargetFPS <= 0 {
		return derrors.Configf("ui.target_fps must be > 0 (got %d)", c.UI.TargetFPS)
	}
	if c.Refresh.FetchTimeoutMS <= 0 {
		return derrors.Configf("refresh.fetch_timeout_ms must be > 0 (got %d)", c.Refresh.FetchTimeoutMS)
	}
	if c.Refresh.ErrorLogIntervalSeconds < 0 {
		return derrors.Configf("refresh.error_log_interval_seconds must be >= 0 (got %d)", c.Refresh.ErrorLogIntervalSeconds)
	}
	if c.Location.Lat < -90 || c.Location.Lat > 90 || c.Location.Lon < -180 || c.Location.Lon > 180 {
		return derrors.Configf("location %.6f,%.6f is out of range", c.Location.Lat, c.Location.Lon)
	}
	if c.Logging.Enabled && strings.TrimSpace(c.Logging.Dir) == "" {
		return derrors.Configf("logging.dir is empty while logging is enabled")
	}
	names := make([]string, 0, len(c.Panels))
	for name := range c.Panels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := c.Panels[name]
		if p.IntervalMS != nil && *p.IntervalMS <= 0 {
			return derrors.Configf("panels.%s.interval_ms must be > 0 (got %d)", name, *p.IntervalMS)
		}
		for field, v := range map[string]*int{"row": p.Row, "col": p.Col} {
			if v != nil && *v < 0 {
				return derrors.Configf("panels.%s.%s must be >= 0 (got %d)", name, field, *v)
			}
		}
		for field, v := range map[string]*int{"row_span": p.RowSpan, "col_span": p.ColSpan} {
			if v != nil && *v <= 0 {
				return derrors.Configf("panels.%s.%s must be > 0 (got %d)", name, field, *v)
			}
		}
	}
	return nil
}

// CheckPanels reports the first override whose name is not in known,
// suggesting the closest known name.
func (c *Config) CheckPanels(known []string) error {
	names := make([]string, 0, len(c.Panels))
	for name := range c.Panels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if contains(known, name) {
			continue
		}
		err := derrors.Configf("unknown panel %q", name)
		if s := Suggest(name, known); s != "" {
			err.Suggestion = fmt.Sprintf("Did you mean %q?", s)
		} else {
			err.Suggestion = "Known panels: " + strings.Join(known, ", ")
		}
		return err
	}
	return nil
}

// Suggest returns the candidate closest to name, or "" when nothing is within
// a third of the name's length.
func Suggest(name string, candidates []string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	best := ""
	bestDist := -1
	for _, cand := range candidates {
		d := levenshtein.ComputeDistance(name, strings.ToLower(cand))
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	limit := len(name) / 3
	if limit < 1 {
		limit = 1
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ProbeTimeout returns the store probe bound.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Store.ProbeTimeoutMS) * time.Millisecond
}

// FetchTimeout returns the per-fetch bound.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Refresh.FetchTimeoutMS) * time.Millisecond
}

// ErrorLogInterval returns the per-panel error log window.
func (c *Config) ErrorLogInterval() time.Duration {
	return time.Duration(c.Refresh.ErrorLogIntervalSeconds) * time.Second
}

// Print displays the configuration
func (c *Config) Print() {
	c.Fprint(os.Stdout)
}

// Fprint writes the configuration summary to w.
func (c *Config) Fprint(w io.Writer) {
	source := c.LoadedFrom
	if source == "" {
		source = "(defaults)"
	}
	fmt.Fprintf(w, "Config: %s\n", source)
	fmt.Fprintf(w, "Store: %s (probe %dms)\n", c.Store.Path, c.Store.ProbeTimeoutMS)
	fmt.Fprintf(w, "Layout: %dx%d (margin %.2f%%, spacing %.2f%%)\n", c.Layout.Rows, c.Layout.Cols, c.Layout.MarginPercent, c.Layout.SpacingPercent)
	fmt.Fprintf(w, "UI: %d fps (border=%s title=%s hidden=%t)\n", c.UI.TargetFPS, c.UI.BorderColor, c.UI.TitleColor, c.UI.HideBorder)
	fmt.Fprintf(w, "Refresh: fetch timeout %dms, error log every %ds\n", c.Refresh.FetchTimeoutMS, c.Refresh.ErrorLogIntervalSeconds)
	fmt.Fprintf(w, "Location: %.6f, %.6f\n", c.Location.Lat, c.Location.Lon)
	if c.Logging.Enabled {
		fmt.Fprintf(w, "Logging: %s (retention %d days)\n", c.Logging.Dir, c.Logging.RetentionDays)
	}
	if c.Metrics.Listen != "" {
		fmt.Fprintf(w, "Metrics: http://%s/metrics\n", c.Metrics.Listen)
	}
	if len(c.Panels) > 0 {
		names := make([]string, 0, len(c.Panels))
		for name := range c.Panels {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "Panel overrides: %s\n", strings.Join(names, ", "))
	}
}
