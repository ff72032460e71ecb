package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of export runs.
type Metrics struct {
	runsTotal        *prometheus.CounterVec
	rowsExported     *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	sinkFailures     *prometheus.CounterVec
	unmarkedRows     prometheus.Counter
	lastSuccess      *prometheus.GaugeVec
	runsSkippedTotal *prometheus.CounterVec
}

// NewMetrics registers the export collectors with reg. A nil reg builds
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptsync_runs_total",
			Help: "Export runs by path and final status",
		}, []string{"path", "status"}),
		rowsExported: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptsync_rows_exported_total",
			Help: "Groups written to the key-value store or rows written to the archive",
		}, []string{"path"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptsync_run_duration_seconds",
			Help:    "Wall-clock time of export runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"path"}),
		sinkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptsync_sink_write_failures_total",
			Help: "Group records the key-value store rejected",
		}, []string{"path"}),
		unmarkedRows: f.NewCounter(prometheus.CounterOpts{
			Name: "promptsync_bulk_unmarked_rows_total",
			Help: "Archived rows whose exported marker could not be set",
		}),
		lastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "promptsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}, []string{"path"}),
		runsSkippedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptsync_runs_skipped_total",
			Help: "Runs not started because the same path was still running",
		}, []string{"path"}),
	}
}

func (m *Metrics) observeRun(res RunResult) {
	if m == nil {
		return
	}
	path := string(res.Path)
	m.runsTotal.WithLabelValues(path, string(res.Status)).Inc()
	if res.Status == RunSkipped {
		m.runsSkippedTotal.WithLabelValues(path).Inc()
		return
	}
	m.runDuration.WithLabelValues(path).Observe(res.Duration().Seconds())
	m.rowsExported.WithLabelValues(path).Add(float64(res.Rows))
	if res.Status == RunSucceeded {
		m.lastSuccess.WithLabelValues(path).Set(float64(res.FinishedAt.Unix()))
	}
}

func (m *Metrics) sinkFailed(path Path) {
	if m == nil {
		return
	}
	m.sinkFailures.WithLabelValues(string(path)).Inc()
}

func (m *Metrics) unmarked(n int) {
	if m == nil {
		return
	}
	m.unmarkedRows.Add(float64(n))
}
