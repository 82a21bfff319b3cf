package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docsnatch/docsnatch/internal/domain"
)

// Metrics tracks build outcomes for the /metrics endpoint. Each server
// owns its registry, so tests can construct servers freely without
// duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal      *prometheus.CounterVec
	itemsTotal       *prometheus.CounterVec
	rejectedTotal    *prometheus.CounterVec
	buildDuration    *prometheus.HistogramVec
	archiveSizeBytes prometheus.Histogram
	buildsInProgress prometheus.Gauge
}

// NewMetrics creates and registers the server metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	// buildsTotal counts builds by document type and outcome
	m.buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsnatch_builds_total",
			Help: "Total archive builds by document type and status",
		},
		[]string{"type", "status"},
	)

	// itemsTotal counts resolved ids across all builds
	m.itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsnatch_items_total",
			Help: "Total resolved ids by document type and status",
		},
		[]string{"type", "status"},
	)

	// rejectedTotal counts download requests refused before a build ran
	m.rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docsnatch_requests_rejected_total",
			Help: "Download requests rejected before building",
		},
		[]string{"reason"},
	)

	m.buildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docsnatch_build_duration_seconds",
			Help:    "Archive build duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// Buckets: 1KB, 10KB, 100KB, 1MB, 10MB, 100MB
	m.archiveSizeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "docsnatch_archive_size_bytes",
			Help: "Size of produced archives",
			Buckets: []float64{
				1024,
				10240,
				102400,
				1048576,
				10485760,
				104857600,
			},
		},
	)

	m.buildsInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docsnatch_builds_in_progress",
			Help: "Builds currently running",
		},
	)

	m.registry.MustRegister(
		m.buildsTotal,
		m.itemsTotal,
		m.rejectedTotal,
		m.buildDuration,
		m.archiveSizeBytes,
		m.buildsInProgress,
	)

	return m
}

// Handler returns the scrape endpoint handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BuildStarted marks a build in flight
func (m *Metrics) BuildStarted() {
	m.buildsInProgress.Inc()
}

// BuildFinished clears the in-flight mark
func (m *Metrics) BuildFinished() {
	m.buildsInProgress.Dec()
}

// RecordBuild records one completed build from its report
func (m *Metrics) RecordBuild(report *domain.BuildReport, archiveBytes int) {
	status := "ok"
	switch {
	case report.AllFailed():
		status = "all_failed"
	case report.Failed > 0:
		status = "partial"
	}

	docType := report.Type.String()
	m.buildsTotal.WithLabelValues(docType, status).Inc()
	m.buildDuration.WithLabelValues(docType).Observe(report.Duration.Seconds())
	m.archiveSizeBytes.Observe(float64(archiveBytes))

	if report.Succeeded > 0 {
		m.itemsTotal.WithLabelValues(docType, "ok").Add(float64(report.Succeeded))
	}
	if report.Failed > 0 {
		m.itemsTotal.WithLabelValues(docType, "failed").Add(float64(report.Failed))
	}
}

// RecordBuildError counts a build that errored out entirely
func (m *Metrics) RecordBuildError(docType domain.DocType) {
	m.buildsTotal.WithLabelValues(docType.String(), "error").Inc()
}

// RecordRejected counts a request refused before any build ran
func (m *Metrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}
