package metrics

import (
	"github.com/contre95/plexify/src/music"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plexify"

// Collector exposes sync cycle reports as Prometheus metrics.
type Collector struct {
	CyclesTotal        *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	DownloadsTotal     *prometheus.CounterVec
	DeletionsTotal     *prometheus.CounterVec
	PlaylistsProcessed prometheus.Gauge
	PlaylistsFailed    prometheus.Gauge
	LastCycle          prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewCollector creates the cycle metrics and registers them on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Sync cycles run, by result",
			},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of sync cycles",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		DownloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Track acquisitions, by outcome",
			},
			[]string{"outcome"},
		),
		DeletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deletions_total",
				Help:      "Local track deletions, by outcome",
			},
			[]string{"outcome"},
		),
		PlaylistsProcessed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "playlists_processed",
				Help:      "Playlists processed by the last cycle",
			},
		),
		PlaylistsFailed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "playlists_failed",
				Help:      "Playlists that failed in the last cycle",
			},
		),
		LastCycle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_cycle_timestamp_seconds",
				Help:      "Unix time the last cycle finished",
			},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		c.CyclesTotal,
		c.CycleDuration,
		c.DownloadsTotal,
		c.DeletionsTotal,
		c.PlaylistsProcessed,
		c.PlaylistsFailed,
		c.LastCycle,
		prometheus.NewGoCollector(),
	)
	return c
}

// Gatherer returns the registry holding the cycle metrics.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.gatherer
}

// Observe records a finished cycle.
func (c *Collector) Observe(report music.CycleReport) {
	result := "success"
	if report.Failed() {
		result = "failure"
	}
	c.CyclesTotal.WithLabelValues(result).Inc()
	c.CycleDuration.Observe(report.Duration().Seconds())

	s := report.Stats
	c.DownloadsTotal.WithLabelValues("succeeded").Add(float64(s.DownloadsSucceeded))
	c.DownloadsTotal.WithLabelValues("failed").Add(float64(s.DownloadsFailed))
	c.DownloadsTotal.WithLabelValues("skipped").Add(float64(s.DownloadsSkipped))
	c.DeletionsTotal.WithLabelValues("succeeded").Add(float64(s.DeletionsSucceeded))
	c.DeletionsTotal.WithLabelValues("failed").Add(float64(s.DeletionsFailed))
	c.PlaylistsProcessed.Set(float64(s.PlaylistsProcessed))
	c.PlaylistsFailed.Set(float64(s.PlaylistsFailed))
	c.LastCycle.Set(float64(report.FinishedAt.Unix()))
}
