// Package metrics defines the Prometheus metric collectors used across the
// reordering pipeline and exposes an HTTP handler for scraping. Reordering
// large collections runs for hours; the scrape endpoint is how operators
// watch a run in flight.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	DocsProcessedTotal    prometheus.Counter
	PartitionsTotal       prometheus.Counter
	SwapsTotal            prometheus.Counter
	IterationsTotal       prometheus.Counter
	PartitionDuration     prometheus.Histogram
	ForwardBuildDuration  prometheus.Histogram
	PostingListsReordered prometheus.Counter
	SnapshotLoadsTotal    *prometheus.CounterVec
	BisectionDepth        prometheus.Gauge
	ActiveParallelTasks   prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		DocsProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bp_documents_processed_total",
				Help: "Documents processed by finished partition steps, counted once per recursion level.",
			},
		),
		PartitionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bp_partitions_total",
				Help: "Total partition steps completed.",
			},
		),
		SwapsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bp_swaps_total",
				Help: "Total document pairs exchanged across partition boundaries.",
			},
		),
		IterationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bp_iterations_total",
				Help: "Total gain-sort-swap iterations executed.",
			},
		),
		PartitionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bp_partition_duration_seconds",
				Help:    "Wall time per partition step.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		ForwardBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forward_index_build_duration_seconds",
				Help:    "Wall time to build the forward index from the inverted index.",
				Buckets: []float64{0.1, 1, 10, 60, 300, 1800, 3600},
			},
		),
		PostingListsReordered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posting_lists_reordered_total",
				Help: "Posting lists rewritten through the final mapping.",
			},
		),
		SnapshotLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forward_index_snapshot_loads_total",
				Help: "Forward index snapshot load attempts by status (hit, miss, invalid).",
			},
			[]string{"status"},
		),
		BisectionDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bp_recursion_depth",
				Help: "Configured recursion depth for the current run.",
			},
		),
		ActiveParallelTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bp_active_parallel_tasks",
				Help: "Forked bisection tasks currently executing.",
			},
		),
	}

	prometheus.MustRegister(
		m.DocsProcessedTotal,
		m.PartitionsTotal,
		m.SwapsTotal,
		m.IterationsTotal,
		m.PartitionDuration,
		m.ForwardBuildDuration,
		m.PostingListsReordered,
		m.SnapshotLoadsTotal,
		m.BisectionDepth,
		m.ActiveParallelTasks,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
