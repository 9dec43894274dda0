package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowCacheHits counts row lookups served from the in-memory cache.
	RowCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quilt",
		Name:      "row_cache_hits_total",
		Help:      "Row lookups served from the in-memory cache.",
	})

	// RowCacheMisses counts row lookups that required a local load or a
	// remote fetch.
	RowCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quilt",
		Name:      "row_cache_misses_total",
		Help:      "Row lookups not present in the in-memory cache.",
	})

	// FetchDispatches counts remote-fetch tasks submitted to the controller.
	FetchDispatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quilt",
		Name:      "fetch_dispatches_total",
		Help:      "Remote fetch tasks dispatched.",
	})

	// FetchedRows counts rows successfully populated from remote fetches.
	FetchedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quilt",
		Name:      "fetched_rows_total",
		Help:      "Rows populated from remote fetch results.",
	})

	// FetchErrors counts remote fetch results that arrived as errors.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quilt",
		Name:      "fetch_errors_total",
		Help:      "Remote fetch results that arrived as errors.",
	})
)
