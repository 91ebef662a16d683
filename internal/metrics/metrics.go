// Package metrics holds the process-wide Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goreadable_pages_fetched_total",
		Help: "Total number of pages successfully fetched",
	})
	BytesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goreadable_bytes_fetched_total",
		Help: "Total bytes downloaded after content decoding",
	})
	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goreadable_fetch_errors_total",
		Help: "Failed fetches by reason",
	}, []string{"reason"})
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goreadable_http_cache_hits_total",
		Help: "Fetches answered from the HTTP cache after a 304",
	})
	Extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goreadable_extractions_total",
		Help: "Readable-text extractions by path taken",
	}, []string{"path"})
	ExtractSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "goreadable_extract_duration_seconds",
		Help:    "Time spent extracting readable text from one document",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)

// Extraction path labels.
const (
	PathSelector  = "selector"
	PathHeuristic = "heuristic"
	PathEmpty     = "empty"
)

func init() {
	prometheus.MustRegister(PagesFetched, BytesFetched, FetchErrors, CacheHits, Extractions, ExtractSeconds)
}
