package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Transaction metrics
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sail_commits_total",
			Help: "Total number of branch flushes by outcome (committed, rolled_back)",
		},
		[]string{"outcome"},
	)

	ConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sail_conflicts_total",
			Help: "Total number of prepare-time write-skew conflicts detected, by isolation level",
		},
		[]string{"isolation_level"},
	)

	FlushLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sail_flush_duration_seconds",
			Help:    "Time taken to flush a branch into its parent",
			Buckets: prometheus.DefBuckets,
		},
	)

	PrepareLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sail_prepare_duration_seconds",
			Help:    "Time taken to run conflict detection during Prepare",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Branch and snapshot gauges
	OpenBranchesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sail_open_branches_total",
			Help: "Number of currently live branches registered in the arena",
		},
	)

	OpenSnapshotsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sail_open_snapshots_total",
			Help: "Number of currently open dataset views by isolation level",
		},
		[]string{"isolation_level"},
	)

	PrependListDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sail_prepend_list_depth",
			Help:    "Number of sibling change-sets a branch's prepend list carried at flush time",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	// Sink / buffered write metrics
	BufferedStatementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sail_buffered_statements_total",
			Help: "Total number of statements buffered into a sink across its lifetime",
		},
	)

	AutoFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sail_auto_flushes_total",
			Help: "Total number of auto-flushes triggered by the buffered-statement threshold",
		},
	)

	// Store metrics
	StatementsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sail_statements_total",
			Help: "Total number of statements held by an in-memory store, by index ordering",
		},
		[]string{"index"},
	)

	StatisticsCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sail_statistics_cache_hits_total",
			Help: "Total number of cardinality-estimate cache hits",
		},
	)

	StatisticsCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sail_statistics_cache_misses_total",
			Help: "Total number of cardinality-estimate cache misses",
		},
	)

	// Leak diagnostics metrics
	LeakSweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sail_leak_sweeps_total",
			Help: "Total number of background leak-check sweeps run",
		},
	)

	LeaksReleasedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sail_leaks_released_total",
			Help: "Total number of abandoned resources force-released by a leak sweep, by kind",
		},
		[]string{"kind"},
	)

	LeakTrackedResourcesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sail_leak_tracked_resources_total",
			Help: "Number of resources currently registered with the leak tracker",
		},
	)

	// Connection metrics
	ConnectionsOpenTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sail_connections_open_total",
			Help: "Number of currently open connections",
		},
	)

	TransactionsActiveTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sail_transactions_active_total",
			Help: "Number of currently active transactions, by isolation level",
		},
		[]string{"isolation_level"},
	)
)

func init() {
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(ConflictsTotal)
	prometheus.MustRegister(FlushLatency)
	prometheus.MustRegister(PrepareLatency)
	prometheus.MustRegister(OpenBranchesTotal)
	prometheus.MustRegister(OpenSnapshotsTotal)
	prometheus.MustRegister(PrependListDepth)
	prometheus.MustRegister(BufferedStatementsTotal)
	prometheus.MustRegister(AutoFlushesTotal)
	prometheus.MustRegister(StatementsTotal)
	prometheus.MustRegister(StatisticsCacheHitsTotal)
	prometheus.MustRegister(StatisticsCacheMissesTotal)
	prometheus.MustRegister(LeakSweepsTotal)
	prometheus.MustRegister(LeaksReleasedTotal)
	prometheus.MustRegister(LeakTrackedResourcesTotal)
	prometheus.MustRegister(ConnectionsOpenTotal)
	prometheus.MustRegister(TransactionsActiveTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
