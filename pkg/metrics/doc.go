/*
Package metrics provides Prometheus metrics collection and exposition for the store.

The metrics package defines and registers all metrics using the Prometheus
client library, providing observability into transaction throughput, conflict
rates, branch/snapshot lifecycle, and buffered-write behavior. Metrics are
exposed via an HTTP endpoint for scraping by Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Transactions: commits, conflicts, latency  │          │
	│  │  Branches: open count, prepend list depth   │          │
	│  │  Sinks: buffered statements, auto-flushes   │          │
	│  │  Store: statement counts, statistics cache  │          │
	│  │  Leak checks: sweeps, releases              │          │
	│  │  Connections: open count, active txns       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Transaction Metrics:

sail_commits_total{outcome}:
  - Type: Counter
  - Description: Branch flushes by outcome (committed, rolled_back)

sail_conflicts_total{isolation_level}:
  - Type: Counter
  - Description: Prepare-time write-skew conflicts detected, by isolation level

sail_flush_duration_seconds:
  - Type: Histogram
  - Description: Time to flush a branch into its parent (Prepare is timed separately)

sail_prepare_duration_seconds:
  - Type: Histogram
  - Description: Time to run conflict detection during Prepare

Branch and Snapshot Metrics:

sail_open_branches_total:
  - Type: Gauge
  - Description: Number of live branches registered in the arena

sail_open_snapshots_total{isolation_level}:
  - Type: Gauge
  - Description: Open dataset views by isolation level

sail_prepend_list_depth:
  - Type: Histogram
  - Description: Sibling change-sets a branch's prepend list carried at flush time

Sink Metrics:

sail_buffered_statements_total:
  - Type: Counter
  - Description: Statements buffered into a sink across its lifetime

sail_auto_flushes_total:
  - Type: Counter
  - Description: Auto-flushes triggered by the buffered-statement threshold

Store Metrics:

sail_statements_total{index}:
  - Type: Gauge
  - Description: Statements held by an in-memory store (set by store.Memory), by index ordering

sail_statistics_cache_hits_total / sail_statistics_cache_misses_total:
  - Type: Counter
  - Description: Cardinality-estimate cache hit/miss counts

Leak Diagnostics Metrics:

sail_leak_sweeps_total:
  - Type: Counter
  - Description: Background leak-check sweeps run

sail_leaks_released_total{kind}:
  - Type: Counter
  - Description: Abandoned resources force-released by a leak sweep, by kind

sail_leak_tracked_resources_total:
  - Type: Gauge
  - Description: Resources currently registered with the leak tracker

Connection Metrics:

sail_connections_open_total:
  - Type: Gauge
  - Description: Currently open connections

sail_transactions_active_total{isolation_level}:
  - Type: Gauge
  - Description: Currently active transactions, by isolation level

# Usage

Recording Histogram Observations:

	timer := metrics.NewTimer()
	err := branch.Prepare(ctx)
	timer.ObserveDuration(metrics.PrepareLatency)

	if err != nil {
		metrics.ConflictsTotal.WithLabelValues(string(level)).Inc()
	} else {
		metrics.CommitsTotal.WithLabelValues("committed").Inc()
	}

Collector:

	collector := metrics.NewCollector(arena, tracker)
	collector.Start()
	defer collector.Stop()

Exposing the Endpoint:

	http.Handle("/metrics", metrics.Handler())
	http.ListenAndServe(":9090", nil)

# Integration Points

This package integrates with:

  - pkg/source: Records flush/prepare latency, prepend list depth, open branches
  - pkg/dataset: Records open snapshot gauges
  - pkg/store: Records statement counts and statistics cache hit/miss rates
  - pkg/leakcheck: Records sweep counts and released-resource counts
  - pkg/conn: Records commit and conflict counts, buffered statement and
    auto-flush counts, open connection and active transaction gauges
  - Prometheus: Scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels (isolation level, outcome, index)
  - Avoid high-cardinality labels (branch handles, statement values)

Timer Pattern:
  - Create timer at operation start
  - Call ObserveDuration once the operation completes

# Troubleshooting

Missing Metrics:
  - Check: Metric registered in init() function
  - Check: MustRegister called (panics if duplicate)

High Cardinality:
  - Cause: Using branch handles or statement values as labels
  - Solution: Remove high-cardinality labels, aggregate differently

# Monitoring

Prometheus Queries (PromQL):

Conflict Rate:
  - rate(sail_conflicts_total[5m])

Prepare/Flush Latency:
  - histogram_quantile(0.95, sail_prepare_duration_seconds_bucket)
  - histogram_quantile(0.95, sail_flush_duration_seconds_bucket)

Branch Growth:
  - sail_open_branches_total

Statistics Cache Effectiveness:
  - rate(sail_statistics_cache_hits_total[5m]) / (rate(sail_statistics_cache_hits_total[5m]) + rate(sail_statistics_cache_misses_total[5m]))

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
