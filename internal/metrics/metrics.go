// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchOutcomes counts identification attempts by method and outcome.
	MatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "biometric_matches_total",
		Help:      "Biometric identification attempts by method and result.",
	}, []string{"method", "result"})

	// CandidatesScanned observes how many templates one face match compared.
	CandidatesScanned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "face_candidates_scanned",
		Help:      "Enrolled face templates scored per match request.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	// Transitions counts attendance state changes.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "transitions_total",
		Help:      "Attendance transitions by kind, action and resulting status.",
	}, []string{"kind", "action", "status", "applied"})

	// EnrollJobs counts processed image enrollment jobs.
	EnrollJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "enroll_jobs_total",
		Help:      "Queued face enrollment jobs by result.",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
