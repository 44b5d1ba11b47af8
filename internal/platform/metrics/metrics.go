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

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	DriversRegistered     prometheus.Counter
	RegistrationRollbacks *prometheus.CounterVec
	DocumentsUploaded     *prometheus.CounterVec
	UploadsRejected       *prometheus.CounterVec
	ComplaintsFiled       prometheus.Counter
	ProfileLookups        *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the metrics on a fresh registry. Each call is independent, so
// tests can build as many as they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DriversRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "registry_drivers_registered_total",
			Help: "Drivers registered successfully.",
		}),
		RegistrationRollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_registration_rollbacks_total",
			Help: "Identity deletions after a failed driver insert, by outcome.",
		}, []string{"outcome"}),
		DocumentsUploaded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_documents_uploaded_total",
			Help: "Documents stored, by document type.",
		}, []string{"type"}),
		UploadsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_uploads_rejected_total",
			Help: "Upload attempts rejected, by error code.",
		}, []string{"code"}),
		ComplaintsFiled: f.NewCounter(prometheus.CounterOpts{
			Name: "registry_complaints_filed_total",
			Help: "Complaints filed against drivers.",
		}),
		ProfileLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_profile_lookups_total",
			Help: "Public profile lookups, by result.",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_http_requests_total",
			Help: "HTTP requests, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registry_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors. main enables
// them; tests leave them off so gathered output stays small.
func (m *Metrics) WithRuntimeCollectors() *Metrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) IncDriversRegistered() { m.DriversRegistered.Inc() }

// IncRollback records a compensating identity delete; ok reports whether it succeeded.
func (m *Metrics) IncRollback(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.RegistrationRollbacks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDocumentUploaded(docType string) {
	m.DocumentsUploaded.WithLabelValues(docType).Inc()
}

func (m *Metrics) IncUploadRejected(code string) {
	m.UploadsRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) IncComplaintsFiled() { m.ComplaintsFiled.Inc() }

func (m *Metrics) IncProfileLookup(found bool) {
	result := "found"
	if !found {
		result = "not_found"
	}
	m.ProfileLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
