package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "accountdesk", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "accountdesk", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "accountdesk", Name: "auth_operations_total", Help: "Account operations by name and outcome."},
		[]string{"operation", "outcome"},
	)
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "accountdesk", Name: "provider_request_seconds", Help: "Latency of calls to the hosted identity provider.", Buckets: prometheus.DefBuckets},
		[]string{"call"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthOperations)
	reg.MustRegister(ProviderLatency)
}

// Outcome records one account operation result.
func Outcome(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}
