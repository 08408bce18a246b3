// Package metrics exposes Prometheus collectors for the fetch engine and
// rate governor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubproxy_fetch_requests_total",
			Help: "Total number of fetch calls labeled by outcome status",
		},
		[]string{"status"},
	)
	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pubproxy_fetch_duration_seconds",
			Help:    "Duration of whole fetch calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	proxiesReturnedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pubproxy_proxies_returned_total",
			Help: "Total number of proxy records delivered to callers",
		},
	)
	reservationWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pubproxy_reservation_wait_seconds",
			Help:    "Time spent waiting for a request slot",
			Buckets: []float64{.005, .05, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	quotaRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pubproxy_quota_remaining",
			Help: "Requests remaining in the current local day per tier",
		},
		[]string{"tier"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubproxy_errors_total",
			Help: "Total number of classified errors by kind and severity",
		},
		[]string{"kind", "severity"},
	)
)

// RecordFetch counts a completed fetch call with its duration.
func RecordFetch(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}

	fetchRequestsTotal.WithLabelValues(status).Inc()
	fetchDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordProxies counts proxy records delivered to a caller.
func RecordProxies(count int) {
	if count <= 0 {
		return
	}
	proxiesReturnedTotal.Add(float64(count))
}

// RecordReservationWait records how long a caller waited for a slot.
func RecordReservationWait(wait time.Duration) {
	if wait < 0 {
		wait = 0
	}
	reservationWaitSeconds.Observe(wait.Seconds())
}

// SetQuotaRemaining publishes the governor's remaining daily quota.
func SetQuotaRemaining(tier string, remaining int) {
	if remaining < 0 {
		// unlimited tiers report no meaningful remainder
		return
	}
	quotaRemaining.WithLabelValues(tier).Set(float64(remaining))
}

// RecordError counts a classified error.
func RecordError(kind, severity string) {
	if kind == "" {
		kind = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(kind, severity).Inc()
}
