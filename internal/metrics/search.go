package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline collectors.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mulefind",
			Name:      "searches_total",
			Help:      "Total number of searches",
		},
		[]string{"status"}, // "ok" / "error" / "empty"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mulefind",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ProviderHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mulefind",
			Name:      "provider_hits_total",
			Help:      "Raw hits returned per provider before aggregation",
		},
		[]string{"provider"},
	)

	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mulefind",
			Name:      "provider_errors_total",
			Help:      "Provider search failures",
		},
		[]string{"provider"},
	)

	ProviderSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mulefind",
			Name:      "provider_skipped_total",
			Help:      "Searches that skipped an unavailable provider",
		},
		[]string{"provider"},
	)

	AggregatedHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mulefind",
			Name:      "aggregated_hits",
			Help:      "Hits left per search after grouping and name de-duplication",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	LibraryFilesHashed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mulefind",
			Name:      "library_files_hashed_total",
			Help:      "Shared files hashed by the watcher",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		SearchesTotal, SearchDuration,
		ProviderHitsTotal, ProviderErrorsTotal, ProviderSkippedTotal,
		AggregatedHits, LibraryFilesHashed,
	)
}

// ObserveSearch records one finished search.
func ObserveSearch(status string, elapsed time.Duration, results int) {
	SearchesTotal.WithLabelValues(status).Inc()
	SearchDuration.Observe(elapsed.Seconds())
	if status == "ok" {
		AggregatedHits.Observe(float64(results))
	}
}
