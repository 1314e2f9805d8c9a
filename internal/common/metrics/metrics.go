// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landing_submissions_total",
			Help: "Landing application submissions by loan type and outcome",
		},
		[]string{"loan_type", "outcome"},
	)

	SubmissionsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "landing_submissions_rate_limited_total",
			Help: "Submissions rejected by the per-IP daily limit",
		},
	)

	StepValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_step_validations_total",
			Help: "Step guard decisions by step and reason",
		},
		[]string{"step", "reason"},
	)

	WizardSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_submissions_total",
			Help: "Wizard gateway submissions by outcome",
		},
		[]string{"outcome"},
	)

	AdminRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Admin API requests by route and status code",
		},
		[]string{"route", "status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_notifications_total",
			Help: "Lead notifications by channel and result",
		},
		[]string{"channel", "result"},
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

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
