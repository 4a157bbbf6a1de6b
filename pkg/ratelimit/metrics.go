package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the rate limit breaker.
var (
	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_blocks_total",
		Help: "Total number of requests rejected because their route is rate limited",
	})

	rateLimitWindowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_rate_limit_windows_total",
		Help: "Total number of upstream rate limit windows recorded",
	})

	rateLimitCooldownSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "github_rate_limit_cooldown_seconds",
		Help:    "Cooldown applied to a route after an upstream rate limit response",
		Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600},
	})

	rateLimitErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_rate_limit_errors_total",
		Help: "Total number of store errors in the rate limit breaker",
	}, []string{"operation"}) // "exists", "set", "encode"
)
