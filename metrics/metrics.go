// Package metrics declares the prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "route", "status"})

	httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	TestsGenerated = factory.NewCounter(prometheus.CounterOpts{
		Name: "tests_generated_total",
		Help: "Practice tests generated",
	})

	Verifications = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "verifications_total",
		Help: "Question verifications processed, by verdict (or error)",
	}, []string{"verdict"})

	EmailsSent = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Outgoing emails, by type and status",
	}, []string{"type", "status"})

	ArticlesChanged = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "boe_articles_changed_total",
		Help: "Article changes detected in BOE syncs",
	}, []string{"change"})

	AIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_requests_total",
		Help: "AI completions, by provider and outcome",
	}, []string{"provider", "outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveRequest records one served HTTP request. route is the gin route template.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
