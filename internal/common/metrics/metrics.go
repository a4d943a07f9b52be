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

	AllocationValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_allocation_validations_total",
			Help: "Allocation validator outcomes",
		},
		[]string{"outcome"}, // valid, incomplete, range_exceeded, to_exceeded
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_submissions_total",
			Help: "Distribution create/update submissions by recipient kind and result",
		},
		[]string{"kind", "mode", "result"},
	)

	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_stale_responses_total",
			Help: "Async responses discarded because the selection moved on",
		},
		[]string{"source"},
	)

	CascadeClears = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_cascade_clears_total",
			Help: "Descendant slots cleared by an ancestor change",
		},
		[]string{"kind", "slot"},
	)

	DirectoryCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_directory_cache_total",
			Help: "Directory cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distribution_backend_request_duration_seconds",
			Help:    "Latency of backend REST calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
