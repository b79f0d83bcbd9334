// Package metrics provides Prometheus instrumentation for ingestion runs.
//
// All collectors live in a dedicated Registry rather than the default one, so
// a run can dump exactly its own series with WriteTextfile when it finishes.
// The ingestor is a batch CLI without an HTTP listener; the textfile format is
// what node_exporter's textfile collector picks up.
//
// # Basic Usage
//
//	metrics.UnitsTotal.WithLabelValues("postgres", "success").Inc()
//
//	timer := prometheus.NewTimer(metrics.IngestDuration.WithLabelValues("postgres"))
//	defer timer.ObserveDuration()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector defined by this package.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// UnitsTotal counts finished ingestion tasks.
	// Labels: destination (adapter kind), status (success/failure)
	UnitsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_units_total",
			Help: "Total number of source units processed",
		},
		[]string{"destination", "status"},
	)

	// RecordsWritten counts records handed to a destination.
	RecordsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_written_total",
			Help: "Total number of records written to a destination",
		},
		[]string{"destination"},
	)

	// RetriesTotal counts transient failures that were retried.
	RetriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_retries_total",
			Help: "Total number of retried destination calls",
		},
	)

	// InFlight is the number of tasks currently holding an admission slot.
	InFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_tasks_in_flight",
			Help: "Number of ingestion tasks currently running",
		},
	)

	// IngestDuration tracks how long a single unit takes end to end.
	IngestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_unit_duration_seconds",
			Help:    "Time spent ingesting one source unit",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 9),
		},
		[]string{"destination"},
	)
)

// WriteTextfile writes the current state of Registry in the Prometheus text format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
