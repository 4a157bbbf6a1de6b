// Package metrics provides the Prometheus registry and exposition handler of
// the proxy. All metrics are defined in their respective packages (cache,
// ratelimit, github) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the proxy.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - github_rate_limit_blocks_total (Counter): Requests refused while a rate limit window is open
//   - github_rate_limit_windows_total (Counter): Rate limit windows opened from upstream responses
//   - github_rate_limit_cooldown_seconds (Histogram): Cooldown of opened windows
//   - github_rate_limit_errors_total{operation} (Counter): Store errors on the breaker path
//
// Cache Metrics (pkg/cache):
//   - github_cache_hits_total (Counter): Responses served from the store
//   - github_cache_misses_total (Counter): Requests forwarded downstream
//   - github_cache_stored_bytes_total (Counter): Bytes written to the store
//   - github_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/github):
//   - github_requests_total{endpoint, status} (Counter): Upstream requests by endpoint and HTTP status
//   - github_request_duration_seconds{endpoint} (Histogram): Upstream request duration by endpoint
//   - github_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(github_cache_hits_total[5m])) /
//   (sum(rate(github_cache_hits_total[5m])) + sum(rate(github_cache_misses_total[5m])))
//
//   # Requests refused by the breaker
//   rate(github_rate_limit_blocks_total[5m])
//
//   # Upstream Error Rate
//   rate(github_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(github_request_duration_seconds_bucket[5m]))
