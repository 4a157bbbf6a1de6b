// Package api wires the HTTP surface of the proxy: health and metrics routes
// and the cached, rate-limit guarded GitHub routes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/github-api-cache/pkg/cache"
	"github.com/Sternrassler/github-api-cache/pkg/github"
	"github.com/Sternrassler/github-api-cache/pkg/logging"
	"github.com/Sternrassler/github-api-cache/pkg/metrics"
	"github.com/Sternrassler/github-api-cache/pkg/ratelimit"
	"github.com/Sternrassler/github-api-cache/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Route paths.
const (
	HealthPath          = "/health"
	ReadyPath           = "/ready"
	MetricsPath         = "/metrics"
	GitHubPrefix        = "/api/v1/github"
	RepositoriesPath    = "/repositories"
	GoodFirstIssuesPath = "/repositories/{repo}/good-first-issues"
)

const readyTimeout = 2 * time.Second

// Upstream is the subset of the GitHub client used by the handlers.
type Upstream interface {
	SearchRepositories(ctx context.Context, p github.PageParams) (*github.RepositoriesResponse, error)
	GoodFirstIssues(ctx context.Context, owner, repo string, p github.PageParams) (*github.GoodFirstIssuesResponse, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	// Store backs both the cache and the rate limit breaker (REQUIRED).
	Store store.Store

	// GitHub is the upstream client (REQUIRED).
	GitHub Upstream

	// Ready is probed by /ready. Nil reports ready.
	Ready Pinger

	// CacheTTL is the expiration of cached responses. Zero disables expiry.
	CacheTTL time.Duration

	// Clock overrides the breaker clock (for testing).
	Clock func() time.Time

	Logger zerolog.Logger
}

// NewRouter builds the HTTP handler of the proxy.
func NewRouter(opts Options) http.Handler {
	if opts.Store == nil {
		panic("store cannot be nil")
	}
	if opts.GitHub == nil {
		panic("github client cannot be nil")
	}

	var breakerOpts []ratelimit.Option
	if opts.Clock != nil {
		breakerOpts = append(breakerOpts, ratelimit.WithClock(opts.Clock))
	}
	breaker := ratelimit.NewBreaker(opts.Store,
		logging.For(opts.Logger, logging.ComponentRateLimit), breakerOpts...)

	cacheLogger := logging.For(opts.Logger, logging.ComponentCache)
	cacheOpts := cache.Options{TTL: opts.CacheTTL}
	repositoriesCache := cache.New[github.RepositoriesResponse](opts.Store, cacheLogger, cacheOpts)
	issuesCache := cache.New[github.GoodFirstIssuesResponse](opts.Store, cacheLogger, cacheOpts)

	h := &handlers{github: opts.GitHub, ready: opts.Ready}

	r := chi.NewRouter()
	r.Use(logging.Middleware(opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, h.health)
	r.Get(ReadyPath, h.readiness)
	r.Method(http.MethodGet, MetricsPath, metrics.Handler())

	r.Route(GitHubPrefix, func(r chi.Router) {
		r.Use(breaker.Middleware)
		r.With(repositoriesCache.Handler).Get(RepositoriesPath, h.repositories)
		r.With(issuesCache.Handler).Get(GoodFirstIssuesPath, h.goodFirstIssues)
	})

	return r
}
