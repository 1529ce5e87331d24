package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClientMetrics tracks backend calls and session outcomes. It satisfies
// transport.RequestObserver and ports.EventRecorder.
type ClientMetrics struct {
	registry *prometheus.Registry
	service  string

	apiRequestsTotal *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	sessionEvents    *prometheus.CounterVec
}

func NewClientMetrics(service string) *ClientMetrics {
	registry := prometheus.NewRegistry()

	apiRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total backend API requests by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	apiDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "operation"},
	)
	sessionEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Total session events applied by the dispatcher.",
		},
		[]string{"service", "event"},
	)

	registry.MustRegister(apiRequestsTotal, apiDuration, sessionEvents)

	return &ClientMetrics{
		registry:         registry,
		service:          service,
		apiRequestsTotal: apiRequestsTotal,
		apiDuration:      apiDuration,
		sessionEvents:    sessionEvents,
	}
}

func (m *ClientMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one backend attempt. A zero status code means the
// request never produced a response.
func (m *ClientMetrics) ObserveRequest(operation string, statusCode int, duration time.Duration) {
	status := "transport_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.apiRequestsTotal.WithLabelValues(m.service, operation, status).Inc()
	m.apiDuration.WithLabelValues(m.service, operation).Observe(duration.Seconds())
}

func (m *ClientMetrics) RecordEvent(name string) {
	if name == "" {
		name = "unknown"
	}
	m.sessionEvents.WithLabelValues(m.service, name).Inc()
}
