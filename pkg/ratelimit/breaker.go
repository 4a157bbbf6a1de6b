package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/github-api-cache/pkg/capture"
	"github.com/Sternrassler/github-api-cache/pkg/keys"
	"github.com/Sternrassler/github-api-cache/pkg/store"
	"github.com/rs/zerolog"
)

// BlockedMessage is the body sent when a request is rejected by the breaker.
const BlockedMessage = "Limit of requests exceeded"

// Breaker blocks calls to routes that the upstream has rate limited.
// All state lives in the store; a Breaker can be shared by any number of
// concurrent requests and processes.
type Breaker struct {
	store  store.Store
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the clock used to compute cooldowns.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// NewBreaker creates a breaker backed by s.
func NewBreaker(s store.Store, logger zerolog.Logger, opts ...Option) *Breaker {
	if s == nil {
		panic("store cannot be nil")
	}
	b := &Breaker{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsBlocked reports whether the route at path is currently rate limited.
func (b *Breaker) IsBlocked(ctx context.Context, path string) (bool, error) {
	blocked, err := b.store.Exists(ctx, keys.RateLimit(path))
	if err != nil {
		rateLimitErrorsTotal.WithLabelValues("exists").Inc()
		return false, fmt.Errorf("check rate limit: %w", err)
	}
	return blocked, nil
}

// Observe inspects an upstream response and, when it signals an active rate
// limit, blocks the route for the cooldown. It returns the applied cooldown
// in seconds, or 0 when nothing was recorded.
func (b *Breaker) Observe(ctx context.Context, path string, status int, h http.Header) (int64, error) {
	if !IsRateLimitStatus(status) {
		return 0, nil
	}

	signal := ParseSignal(h)
	cooldown := signal.Cooldown(b.now())
	if cooldown <= 0 {
		// 403/429 for another reason, e.g. bad credentials.
		b.logger.Debug().
			Str("path", path).
			Int("status_code", status).
			Bool("signal_empty", signal.IsEmpty()).
			Msg("Upstream error without active rate limit")
		return 0, nil
	}

	value, err := json.Marshal(signal)
	if err != nil {
		rateLimitErrorsTotal.WithLabelValues("encode").Inc()
		return 0, fmt.Errorf("encode rate limit signal: %w", err)
	}

	ttl := time.Duration(cooldown) * time.Second
	if ttl <= 0 {
		rateLimitErrorsTotal.WithLabelValues("ttl").Inc()
		return 0, fmt.Errorf("rate limit cooldown %ds is not a valid expiry", cooldown)
	}

	key := keys.RateLimit(path)
	if err := b.store.Set(ctx, key, value, ttl); err != nil {
		rateLimitErrorsTotal.WithLabelValues("set").Inc()
		return 0, fmt.Errorf("store rate limit block: %w", err)
	}

	rateLimitWindowsTotal.Inc()
	rateLimitCooldownSeconds.Observe(float64(cooldown))

	b.logger.Warn().
		Str("path", path).
		Str("key", key).
		Int("status_code", status).
		Int64("cooldown_seconds", cooldown).
		Msg("Upstream rate limit recorded - route blocked")

	return cooldown, nil
}

// Middleware wraps next with the breaker. Requests without a derivable key
// are rejected with 400 before the store is consulted.
func (b *Breaker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		path := keys.RoutePath(r)

		if _, err := keys.Derive(path, r.URL.RawQuery); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		blocked, err := b.IsBlocked(ctx, path)
		if err != nil {
			b.logger.Error().Err(err).Str("path", path).Msg("Rate limit check failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if blocked {
			rateLimitBlocksTotal.Inc()
			b.logger.Debug().Str("path", path).Msg("Route rate limited - request blocked")
			http.Error(w, BlockedMessage, http.StatusTooManyRequests)
			return
		}

		rec := capture.NewRecorder()
		next.ServeHTTP(rec, r)

		if !IsRateLimitStatus(rec.Status()) || ctx.Err() != nil {
			b.flush(w, rec)
			return
		}

		cooldown, err := b.Observe(ctx, path, rec.Status(), rec.Header())
		if err != nil {
			b.logger.Error().Err(err).Str("path", path).Msg("Failed to record rate limit")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if cooldown <= 0 {
			b.flush(w, rec)
			return
		}

		for _, name := range Headers {
			if v := rec.Header().Get(name); v != "" {
				w.Header().Set(name, v)
			}
		}
		http.Error(w, BlockedMessage, http.StatusTooManyRequests)
	})
}

func (b *Breaker) flush(w http.ResponseWriter, rec *capture.Recorder) {
	if err := rec.WriteTo(w); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to write response")
	}
}

// IsRateLimitStatus reports whether status can carry an upstream rate limit.
func IsRateLimitStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusForbidden
}
