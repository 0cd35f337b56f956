package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	wsConnections   prometheus.Gauge
	wsBroadcasts    *prometheus.CounterVec
	activityDropped prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	wsConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections",
		Help: "Number of live websocket subscribers",
	})

	wsBroadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_broadcasts_total",
		Help: "Snapshot broadcasts pushed to subscribers, by collection",
	}, []string{"collection"})

	activityDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_log_dropped_total",
		Help: "Activity entries dropped because the log queue was full",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, wsConnections, wsBroadcasts, activityDropped, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		wsConnections:   wsConnections,
		wsBroadcasts:    wsBroadcasts,
		activityDropped: activityDropped,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// SubscriberConnected bumps the live websocket gauge.
func (m *MetricsService) SubscriberConnected() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

// SubscriberDisconnected decrements the live websocket gauge.
func (m *MetricsService) SubscriberDisconnected() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

// ObserveBroadcast counts a snapshot push for the given collection.
func (m *MetricsService) ObserveBroadcast(collection string) {
	if m == nil {
		return
	}
	m.wsBroadcasts.WithLabelValues(collection).Inc()
}

// ActivityDropped counts an activity entry that never reached the
// store, whether the queue refused it or the write itself failed.
func (m *MetricsService) ActivityDropped() {
	if m == nil {
		return
	}
	m.activityDropped.Inc()
}
