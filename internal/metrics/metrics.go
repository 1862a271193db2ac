// Package metrics exposes Prometheus metrics for the door lock.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "doorlock"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	cycles           *prometheus.CounterVec
	decisions        *prometheus.CounterVec
	enrollments      *prometheus.CounterVec
	requests         *prometheus.CounterVec
	gallerySize      prometheus.Gauge
	actuationSeconds *prometheus.HistogramVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recognition_cycles_total",
				Help:      "Recognition cycles by outcome",
			},
			[]string{"outcome"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_decisions_total",
				Help:      "Per-face access decisions",
			},
			[]string{"decision"},
		),
		enrollments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrollments_total",
				Help:      "Enrollment attempts by result",
			},
			[]string{"result"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "control_requests_total",
				Help:      "Control surface requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		gallerySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gallery_templates",
				Help:      "Number of enrolled face templates",
			},
		),
		actuationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "actuation_duration_seconds",
				Help:      "Time spent in actuator sequences",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 10},
			},
			[]string{"sequence"},
		),
	}

	registry.MustRegister(
		m.cycles,
		m.decisions,
		m.enrollments,
		m.requests,
		m.gallerySize,
		m.actuationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveCycle counts a finished recognition cycle.
func (m *Metrics) ObserveCycle(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

// ObserveDecision counts a grant or deny for one face.
func (m *Metrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

// ObserveEnrollment counts an enrollment attempt.
func (m *Metrics) ObserveEnrollment(result string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(result).Inc()
}

// ObserveRequest counts a serviced control request.
func (m *Metrics) ObserveRequest(operation, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, status).Inc()
}

// SetGallerySize records the current template count.
func (m *Metrics) SetGallerySize(n int) {
	if m == nil {
		return
	}
	m.gallerySize.Set(float64(n))
}

// ObserveActuation records how long an actuator sequence held the caller.
func (m *Metrics) ObserveActuation(sequence string, d time.Duration) {
	if m == nil {
		return
	}
	m.actuationSeconds.WithLabelValues(sequence).Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
