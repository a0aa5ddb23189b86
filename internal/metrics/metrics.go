package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	verdicts         *prometheus.CounterVec
	validationChecks *prometheus.CounterVec
	logins           *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Proxied requests by method and status code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Request duration from receipt to response.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_policy_verdicts_total",
			Help: "Policy enforcer verdicts by outcome and deny reason.",
		}, []string{"allowed", "reason"}),
		validationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_validation_checks_total",
			Help: "Validation provider decisions by provider, outcome and cache hit.",
		}, []string{"provider", "passed", "cache_hit"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_logins_total",
			Help: "Login flow requests by type and outcome.",
		}, []string{"type", "outcome"}),
	}

	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.verdicts,
		m.validationChecks,
		m.logins,
	)
	return m
}

// Handler serves the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, code int, duration time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) ObserveVerdict(allowed bool, reason string) {
	m.verdicts.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

// ObserveValidation implements validate.Observer.
func (m *Metrics) ObserveValidation(provider string, passed, cacheHit bool) {
	m.validationChecks.WithLabelValues(provider, strconv.FormatBool(passed), strconv.FormatBool(cacheHit)).Inc()
}

func (m *Metrics) ObserveLogin(requestType, outcome string) {
	m.logins.WithLabelValues(requestType, outcome).Inc()
}
