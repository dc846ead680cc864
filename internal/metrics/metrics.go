// Package metrics exposes Prometheus collectors for the crawlers and the
// indexing pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page outcomes recorded by ObservePage.
const (
	OutcomeOK    = "ok"
	OutcomeRetry = "retry"
	OutcomeError = "error"
)

var (
	crawlPagesTotal            *prometheus.CounterVec
	crawlRetriesTotal          *prometheus.CounterVec
	rowsUpsertedTotal          *prometheus.CounterVec
	indexDocumentsTotal        *prometheus.CounterVec
	indexBatchesTotal          *prometheus.CounterVec
	runsTotal                  *prometheus.CounterVec
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atcoder_crawl_pages_total",
				Help: "Remote pages fetched, labeled by entity and outcome.",
			},
			[]string{"entity", "outcome"},
		)

		crawlRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atcoder_crawl_retries_total",
				Help: "Page fetches retried after a transient failure, labeled by entity.",
			},
			[]string{"entity"},
		)

		rowsUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atcoder_rows_upserted_total",
				Help: "Rows written to the relational store, labeled by entity.",
			},
			[]string{"entity"},
		)

		indexDocumentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atcoder_index_documents_total",
				Help: "Search documents published, labeled by entity.",
			},
			[]string{"entity"},
		)

		indexBatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atcoder_index_batches_total",
				Help: "Document batches published, labeled by entity and publisher.",
			},
			[]string{"entity", "publisher"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atcoder_runs_total",
				Help: "Finished runs, labeled by run name and final status.",
			},
			[]string{"name", "status"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atcoder_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one page fetch.
func ObservePage(entity, outcome string) {
	Init()
	crawlPagesTotal.WithLabelValues(entity, outcome).Inc()
}

// ObserveRetry counts one retried page.
func ObserveRetry(entity string) {
	Init()
	crawlRetriesTotal.WithLabelValues(entity).Inc()
}

// ObserveUpsert adds n written rows.
func ObserveUpsert(entity string, n int) {
	Init()
	if n > 0 {
		rowsUpsertedTotal.WithLabelValues(entity).Add(float64(n))
	}
}

// ObserveBatch counts one published batch of n documents.
func ObserveBatch(entity, publisher string, n int) {
	Init()
	indexBatchesTotal.WithLabelValues(entity, publisher).Inc()
	if n > 0 {
		indexDocumentsTotal.WithLabelValues(entity).Add(float64(n))
	}
}

// ObserveRun counts one finished run.
func ObserveRun(name, status string) {
	Init()
	runsTotal.WithLabelValues(name, status).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
