package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_http_requests_total",
			Help: "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "esign_http_request_duration_seconds",
			Help:    "Duration of inbound HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WorkflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_workflow_runs_total",
			Help: "Total number of workflow runs by outcome",
		},
		[]string{"workflow", "outcome"},
	)

	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_remote_calls_total",
			Help: "Total number of eSignature API calls by operation and HTTP status",
		},
		[]string{"operation", "status"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "esign_remote_call_duration_seconds",
			Help:    "Duration of eSignature API calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	OrphanedEnvelopesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_orphaned_envelopes_total",
			Help: "Draft envelopes left behind by a workflow that failed after creating them",
		},
		[]string{"workflow", "step"},
	)

	AuthExpiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_auth_expired_total",
			Help: "Requests sent back to authentication because the access token was missing or near expiry",
		},
		[]string{"workflow", "purpose"},
	)

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
