package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "labreserve"

// Booking decision outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeOverlap   = "overlap"
	OutcomeCancelled = "cancelled"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeNoLab     = "laboratory_not_found"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by action and status code.",
		},
		[]string{"action", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by action.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	bookingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_decisions_total",
			Help:      "Booking engine decisions by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookingDecisions)
	})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(action string, code int, dur time.Duration) {
	if action == "" {
		action = "none"
	}
	httpRequests.WithLabelValues(action, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(action).Observe(dur.Seconds())
}

// IncDecision increments the counter for a booking decision outcome.
func IncDecision(outcome string) {
	bookingDecisions.WithLabelValues(outcome).Inc()
}

// DecisionCounter exposes the counter of one outcome.
func DecisionCounter(outcome string) prometheus.Counter {
	return bookingDecisions.WithLabelValues(outcome)
}
