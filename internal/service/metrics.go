package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK           = "ok"
	outcomeHTTPError    = "http_error"
	outcomeUnauthorized = "unauthorized"
	outcomeNetworkError = "network_error"
	outcomeMalformed    = "malformed"
)

// ClientMetrics records outbound backend calls. A nil *ClientMetrics records nothing.
type ClientMetrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	backendUp prometheus.Gauge
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	factory := promauto.With(reg)
	return &ClientMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goodads",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goodads",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		backendUp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "goodads",
			Name:      "backend_up",
			Help:      "1 when the last reachability probe of the backend succeeded.",
		}),
	}
}

func (m *ClientMetrics) observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *ClientMetrics) SetBackendUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.backendUp.Set(1)
		return
	}
	m.backendUp.Set(0)
}
