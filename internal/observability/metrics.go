package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the service. Every instance owns
// its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	complaintsCreated *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	denials           *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

// NewMetrics initializes the registry and collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses by error code",
		}, []string{"method", "path", "code"}),
		complaintsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_created_total",
			Help: "Total number of complaints submitted",
		}, []string{"department"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_status_transitions_total",
			Help: "Total number of committed complaint status changes",
		}, []string{"from_status", "to_status"}),
		denials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authorization_denials_total",
			Help: "Total number of operations refused by the authorization guard",
		}, []string{"operation", "reason"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of notifications handed to a channel",
		}, []string{"channel", "event"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) ComplaintCreated(department string) {
	if m == nil {
		return
	}
	m.complaintsCreated.WithLabelValues(department).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Denial(operation, reason string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(operation, reason).Inc()
}

func (m *Metrics) NotificationSent(channel, event string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, event).Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
