// Package cache provides a Redis-backed response cache for JSON endpoints.
//
// The cache middleware is generic over the payload type it protects. On a
// miss it buffers the downstream response, decodes it as T to validate the
// shape, stores the re-encoded value and returns the original bytes to the
// client unchanged. On a hit it serves the stored value without calling the
// downstream handler.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := store.NewRedis(redisClient)
//
//	mw := cache.New[github.RepositoriesResponse](s, logger, cache.Options{TTL: 10 * time.Minute})
//	router.With(mw.Handler).Get("/repositories", handler)
//
// # Keys
//
// Keys are derived from the request path and raw query string (see package
// keys), so GET /repositories?per_page=5&page=3 is stored under
// "repositories:page=3:per_page=5" regardless of parameter order.
//
// # Headers
//
// Responses served from the store, and freshly stored responses, carry
// Cache-Control: max-age=<seconds> when the entry has a positive TTL.
// Entries stored without TTL are served without the header.
//
// # Failure Handling
//
// The cache is best effort. When the store cannot be reached the request is
// forwarded downstream and the response is returned uncached. Error responses
// (4xx/5xx) are never stored. A successful response that does not decode as T
// is reported as 500.
//
// # Metrics
//
//   - github_cache_hits_total - Cache hits
//   - github_cache_misses_total - Cache misses
//   - github_cache_stored_bytes_total - Bytes written to the store
//   - github_cache_errors_total{operation} - Cache operation errors
package cache
