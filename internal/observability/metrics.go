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

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	requestCount   *prometheus.CounterVec
	errorCount     *prometheus.CounterVec
	ticketsCreated prometheus.Counter
	extractions    *prometheus.CounterVec
	modelLatency   prometheus.Histogram
	skippedRows    prometheus.Counter
}

// NewMetrics initializes and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_http_requests_total",
			Help: "HTTP requests served, by route, method and status",
		}, []string{"path", "method", "status"}),
		errorCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_http_errors_total",
			Help: "HTTP requests that ended in a domain error, by code",
		}, []string{"path", "method", "code"}),
		ticketsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tickets_created_total",
			Help: "Tickets appended to the ledger",
		}),
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_tag_extractions_total",
			Help: "Tag extraction outcomes by winning strategy (or none)",
		}, []string{"strategy"}),
		modelLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticket_model_latency_seconds",
			Help:    "Duration of text-generation calls",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		skippedRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "ticket_ledger_skipped_rows_total",
			Help: "Malformed ledger rows skipped while scanning",
		}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

func (m *Metrics) RecordTicketCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

// RecordExtraction counts the strategy that produced tags; "none" marks a failure.
func (m *Metrics) RecordExtraction(strategy string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveModelLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.modelLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordSkippedRow() {
	if m == nil {
		return
	}
	m.skippedRows.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and embedding.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
