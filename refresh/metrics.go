package refresh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports refresh activity to Prometheus. A nil *Metrics records
// nothing.
type Metrics struct {
	Ticks         *prometheus.CounterVec
	Results       *prometheus.CounterVec
	Renders       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// NewMetrics registers the refresh collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Ticks counts every interval tick, including skipped ones
		Ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trikdash_refresh_ticks_total",
				Help: "Refresh ticks per panel",
			},
			[]string{"panel"},
		),
		// Results counts how each tick ended
		Results: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trikdash_refresh_results_total",
				Help: "Refresh outcomes per panel (applied, unchanged, skipped, timeout, fetch_error, render_error, stale)",
			},
			[]string{"panel", "result"},
		),
		Renders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trikdash_widget_swaps_total",
				Help: "Widgets attached to the screen by refreshes",
			},
			[]string{"panel"},
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trikdash_fetch_duration_seconds",
				Help:    "Duration of data provider fetches in seconds",
				Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.25, 1},
			},
			[]string{"panel"},
		),
	}
}

func (m *Metrics) tick(panel string) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(panel).Inc()
}

func (m *Metrics) result(panel, result string) {
	if m == nil {
		return
	}
	m.Results.WithLabelValues(panel, result).Inc()
}

func (m *Metrics) render(panel string) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(panel).Inc()
}

func (m *Metrics) fetched(panel string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(panel).Observe(d.Seconds())
}
