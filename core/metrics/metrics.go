// Package metrics provides Prometheus metrics for the sync engine and job dispatcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine metrics
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrbox_events_total",
			Help: "Total filesystem events handled by the engine",
		},
		[]string{"type", "status"},
	)

	eventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrbox_event_duration_seconds",
			Help:    "Time spent handling one filesystem event",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	divergentObjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrbox_divergent_objects",
			Help: "Number of files the engine last saw with differing local and remote checksums",
		},
	)

	// Verification metrics
	sweepDivergentObjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mrbox_sweep_divergent_objects",
			Help: "Number of divergent files found by the last verification sweep",
		},
	)

	// Remote store metrics
	remoteOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrbox_remote_operations_total",
			Help: "Total remote store operations issued by the engine",
		},
		[]string{"operation", "status"},
	)

	// Job metrics
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrbox_jobs_total",
			Help: "Total map-reduce jobs dispatched",
		},
		[]string{"status"},
	)

	jobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mrbox_job_duration_seconds",
			Help:    "Map-reduce job duration in seconds, materialization included",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	materializedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrbox_materialized_objects_total",
			Help: "Total job output objects materialized locally",
		},
		[]string{"classification"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordEvent records one handled event.
func RecordEvent(eventType string, duration time.Duration, err error) {
	eventsTotal.WithLabelValues(eventType, status(err)).Inc()
	eventDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// SetDivergentObjects sets the number of divergent files tracked by the engine.
func SetDivergentObjects(count int) {
	divergentObjects.Set(float64(count))
}

// SetSweepDivergentObjects sets the number of divergent files found by a sweep.
func SetSweepDivergentObjects(count int) {
	sweepDivergentObjects.Set(float64(count))
}

// RecordRemoteOperation records a remote store call.
func RecordRemoteOperation(operation string, err error) {
	remoteOperationsTotal.WithLabelValues(operation, status(err)).Inc()
}

// RecordJob records a finished job.
func RecordJob(duration time.Duration, err error) {
	jobsTotal.WithLabelValues(status(err)).Inc()
	jobDuration.Observe(duration.Seconds())
}

// RecordMaterialized records one materialized job output child.
func RecordMaterialized(classification string) {
	materializedTotal.WithLabelValues(classification).Inc()
}
