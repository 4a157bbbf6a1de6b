package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks responses served from the store
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "github_cache_hits_total",
			Help: "Total number of responses served from cache",
		},
	)

	// CacheMisses tracks requests forwarded downstream because no entry existed
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "github_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheStoredBytes tracks the payload bytes written to the store
	CacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "github_cache_stored_bytes_total",
			Help: "Total number of payload bytes written to the cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "key", "exists", "get", "ttl", "decode", "encode", "set"
	)
)
