// Package observability holds the prometheus instruments for the resolver.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// resolutionsTotal counts finished resolutions by outcome tag.
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartani",
		Subsystem: "resolver",
		Name:      "resolutions_total",
		Help:      "Resolved queries by outcome tier",
	}, []string{"tier"})

	resolutionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartani",
		Subsystem: "resolver",
		Name:      "resolution_seconds",
		Help:      "End-to-end resolution latency by outcome tier",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"tier"})

	// completionAttemptsTotal counts completion calls by classified result
	// (ok, quota_exceeded, transient, fatal).
	completionAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartani",
		Subsystem: "completion",
		Name:      "attempts_total",
		Help:      "Completion service attempts by classified result",
	}, []string{"result"})

	credentialRotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "smartani",
		Subsystem: "completion",
		Name:      "credential_rotations_total",
		Help:      "Credential rotations triggered by quota exhaustion",
	})

	// searchRequestsTotal counts scholarly search HTTP requests by status
	// (ok, rate_limited, error).
	searchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartani",
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Scholarly search requests by status",
	}, []string{"status"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "smartani",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Sessions currently held in memory",
	})
)

func RecordResolution(tier string, seconds float64) {
	resolutionsTotal.WithLabelValues(tier).Inc()
	resolutionSeconds.WithLabelValues(tier).Observe(seconds)
}

func RecordCompletionAttempt(result string) {
	completionAttemptsTotal.WithLabelValues(result).Inc()
}

func RecordRotation() {
	credentialRotationsTotal.Inc()
}

func RecordSearchRequest(status string) {
	searchRequestsTotal.WithLabelValues(status).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
