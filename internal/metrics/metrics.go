package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breakfast_factory",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "breakfast_factory",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	PaymentEventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breakfast_factory",
		Subsystem: "payments",
		Name:      "events_applied_total",
		Help:      "Verified payment events applied to orders, by provider and status.",
	}, []string{"provider", "status"})
)
