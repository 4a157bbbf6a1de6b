// Package keys derives deterministic store keys from request paths and query strings.
package keys

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Delimiter separates path segments and query tokens in a key.
const Delimiter = ":"

// RateLimitPrefix prefixes the per-route rate limit sentinel keys.
const RateLimitPrefix = "errors" + Delimiter + "rate_limit" + Delimiter

// ErrEmptyKey is returned when neither the path nor the query identify the request.
var ErrEmptyKey = errors.New("request has no path or query to derive a key from")

// Derive builds the cache key for a request path and raw query string.
//
// Path separators become the delimiter and the raw "name=value" query tokens
// are sorted as plain strings, so the same parameters in any order produce
// the same key:
//
//	/repositories?per_page=5&page=3 -> repositories:page=3:per_page=5
func Derive(path, rawQuery string) (string, error) {
	parts := make([]string, 0, 8)

	if p := FormatPath(path); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, sortedQuery(rawQuery)...)

	key := strings.Trim(strings.Join(parts, Delimiter), Delimiter)
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}

// FormatPath converts a URL path into its key form: "/a/b/" -> "a:b".
func FormatPath(path string) string {
	return strings.Trim(strings.ReplaceAll(path, "/", Delimiter), Delimiter)
}

// RoutePath returns the request path relative to the router the handler is
// mounted on, so keys do not depend on the mount prefix: under
// /api/v1/github, GET /api/v1/github/repositories yields "/repositories".
// Requests outside a mounted chi router use the full URL path.
func RoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	return r.URL.Path
}

// RateLimit returns the sentinel key marking a route as rate limited.
// Query parameters are ignored: the block applies to the whole route.
func RateLimit(path string) string {
	return RateLimitPrefix + FormatPath(path)
}

func sortedQuery(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}

	tokens := strings.Split(rawQuery, "&")
	params := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			params = append(params, t)
		}
	}
	sort.Strings(params)
	return params
}
