package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propchat", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propchat", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propchat", Name: "llm_requests_total", Help: "Language-model calls by operation and outcome."},
		[]string{"op", "outcome"}, // outcome: ok|error|fallback
	)
	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propchat", Name: "llm_request_duration_seconds",
			Help:    "Language-model call duration seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"op"},
	)
	CatalogLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propchat", Name: "catalog_loads_total", Help: "Catalog loads by outcome."},
		[]string{"outcome"},
	)
	CatalogLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "propchat", Name: "catalog_load_duration_seconds",
			Help:    "Catalog load and merge duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	BookmarkEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "propchat", Name: "bookmark_events_total", Help: "Bookmark store operations."},
		[]string{"backend", "event"}, // event: save|duplicate|delete|list
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, LLMRequests, LLMLatency, CatalogLoads, CatalogLatency, BookmarkEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveLLM(op, outcome string, dur time.Duration) {
	LLMRequests.WithLabelValues(op, outcome).Inc()
	LLMLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func ObserveCatalog(err error, dur time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CatalogLoads.WithLabelValues(outcome).Inc()
	CatalogLatency.Observe(dur.Seconds())
}

func ObserveBookmark(backend, event string) {
	BookmarkEvents.WithLabelValues(backend, event).Inc()
}
