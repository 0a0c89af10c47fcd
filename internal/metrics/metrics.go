package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/journal-submission-api/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "journal"

// Metrics holds the server collectors. A nil *Metrics is valid and records
// nothing, so services can be built without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	created     *prometheus.CounterVec
	feesCharged prometheus.Counter
	covered     prometheus.Counter
	refused     prometheus.Counter
	sweeps      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_transitions_total",
			Help:      "Committed submission status transitions.",
		}, []string{"from", "to"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_created_total",
			Help:      "Submissions created by initial status.",
		}, []string{"status"}),
		feesCharged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publication_fees_charged_total",
			Help:      "Sum of publication fees deducted from balances.",
		}),
		covered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_covered_by_subscription_total",
			Help:      "Submissions paid for by a subscription plan.",
		}),
		refused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_insufficient_balance_total",
			Help:      "Submissions refused for insufficient balance.",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_sweep_rows_total",
			Help:      "Rows touched by the subscription sweeper.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.transitions, m.created,
		m.feesCharged, m.covered, m.refused, m.sweeps,
	)
	return m
}

// Registry exposes the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Transition counts a committed status change.
func (m *Metrics) Transition(from, to models.Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// Created counts a new submission.
func (m *Metrics) Created(status models.Status) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(string(status)).Inc()
}

// FeeCharged adds a deducted fee.
func (m *Metrics) FeeCharged(amount float64) {
	if m == nil {
		return
	}
	m.feesCharged.Add(amount)
}

// CoveredBySubscription counts a submission paid by plan usage.
func (m *Metrics) CoveredBySubscription() {
	if m == nil {
		return
	}
	m.covered.Inc()
}

// InsufficientBalance counts a refused submission.
func (m *Metrics) InsufficientBalance() {
	if m == nil {
		return
	}
	m.refused.Inc()
}

// Swept records rows touched by one sweeper action.
func (m *Metrics) Swept(action string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.sweeps.WithLabelValues(action).Add(float64(rows))
}
