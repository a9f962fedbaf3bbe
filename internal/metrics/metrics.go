// Package metrics defines the Prometheus collectors exported by plat-map.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "platmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "platmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method"})

	// SourceLoads counts DataSource loads that reached the loader, by outcome.
	SourceLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "platmap",
		Subsystem: "source",
		Name:      "loads_total",
		Help:      "Total data source loads by type and outcome",
	}, []string{"type", "outcome"})

	// SourceLoadDuration observes remote load latency.
	SourceLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "platmap",
		Subsystem: "source",
		Name:      "load_duration_seconds",
		Help:      "Duration of remote data source loads",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"type"})

	// LayersActive tracks layers held across all layer managers.
	LayersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "platmap",
		Subsystem: "layer",
		Name:      "active",
		Help:      "Current number of registered layers",
	})

	// EventsEmitted counts events delivered by emitters, by event type.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "platmap",
		Subsystem: "event",
		Name:      "emitted_total",
		Help:      "Total map events emitted",
	}, []string{"type"})

	// ListenerPanics counts listeners that panicked during delivery.
	ListenerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "platmap",
		Subsystem: "event",
		Name:      "listener_panics_total",
		Help:      "Total listener panics recovered during event delivery",
	})
)

// Middleware records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers stream through the recorder.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
