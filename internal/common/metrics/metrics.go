// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	ResolutionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gbif_resolution_outcomes_total",
			Help: "Parameter resolutions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	NameLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gbif_name_lookups_total",
			Help: "Taxon name lookups by resolution status",
		},
		[]string{"status"},
	)

	NameLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gbif_name_lookup_duration_seconds",
			Help:    "Duration of a single taxon name lookup",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	BoundaryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gbif_boundary_lookups_total",
			Help: "Administrative boundary lookups by level and result",
		},
		[]string{"level", "result"},
	)

	PersonLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gbif_person_lookups_total",
			Help: "Collector name normalisations by status",
		},
		[]string{"status"},
	)

	ExtractionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gbif_extraction_attempts_total",
			Help: "Structured extraction attempts by operation and result",
		},
		[]string{"operation", "result"},
	)

	ResponseCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gbif_response_cache_requests_total",
			Help: "GBIF response cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
