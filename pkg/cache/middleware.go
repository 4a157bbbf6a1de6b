package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/github-api-cache/pkg/capture"
	"github.com/Sternrassler/github-api-cache/pkg/keys"
	"github.com/Sternrassler/github-api-cache/pkg/store"
	"github.com/rs/zerolog"
)

// DefaultTTL is the expiration applied to cached GitHub responses.
const DefaultTTL = 600 * time.Second

// Options configures a cache middleware.
type Options struct {
	// TTL is the expiration of stored entries. Zero stores entries without
	// expiry; they live until the store evicts them.
	TTL time.Duration
}

// Middleware caches successful JSON responses of type T.
type Middleware[T any] struct {
	store  store.Store
	codec  Codec[T]
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a cache middleware for payloads of type T backed by s.
func New[T any](s store.Store, logger zerolog.Logger, opts Options) *Middleware[T] {
	if s == nil {
		panic("store cannot be nil")
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &Middleware[T]{
		store:  s,
		codec:  JSONCodec[T]{},
		ttl:    ttl.Truncate(time.Second),
		logger: logger,
	}
}

// WithCodec replaces the JSON codec.
func (m *Middleware[T]) WithCodec(c Codec[T]) *Middleware[T] {
	m.codec = c
	return m
}

// TTL returns the expiration applied to new entries.
func (m *Middleware[T]) TTL() time.Duration {
	return m.ttl
}

// Handler wraps next with the cache.
func (m *Middleware[T]) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key, err := keys.Derive(keys.RoutePath(r), r.URL.RawQuery)
		if err != nil {
			CacheErrors.WithLabelValues("key").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		exists, err := m.store.Exists(ctx, key)
		if err != nil {
			CacheErrors.WithLabelValues("exists").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache unavailable - forwarding request uncached")
			next.ServeHTTP(w, r)
			return
		}

		if exists {
			if m.serveFromStore(ctx, w, key) {
				return
			}
		}

		CacheMisses.Inc()
		m.logger.Debug().Str("key", key).Msg("Cache miss")

		rec := capture.NewRecorder()
		next.ServeHTTP(rec, r)

		if rec.IsError() || ctx.Err() != nil {
			m.flush(w, rec)
			return
		}

		m.storeAndRespond(ctx, w, key, rec)
	})
}

// serveFromStore writes the cached entry for key. It returns false when the
// entry could not be used and the request should be handled as a miss.
func (m *Middleware[T]) serveFromStore(ctx context.Context, w http.ResponseWriter, key string) bool {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			CacheErrors.WithLabelValues("get").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache get failed")
		}
		return false
	}

	if _, err := m.codec.Decode(data); err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cached entry does not match payload type - refreshing")
		return false
	}

	ttl, err := m.store.TTL(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		CacheErrors.WithLabelValues("ttl").Inc()
		m.logger.Debug().Err(err).Str("key", key).Msg("Cache ttl lookup failed")
		ttl = 0
	}

	CacheHits.Inc()
	m.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cache hit")

	w.Header().Set("Content-Type", "application/json")
	setCacheControl(w.Header(), ttl)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		m.logger.Debug().Err(err).Msg("Failed to write response")
	}
	return true
}

// storeAndRespond validates and stores a successful downstream response, then
// replays the original bytes to the client.
func (m *Middleware[T]) storeAndRespond(ctx context.Context, w http.ResponseWriter, key string, rec *capture.Recorder) {
	value, err := m.codec.Decode(rec.Body())
	if err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		m.logger.Error().Err(err).Str("key", key).Msg("Response does not match payload type")
		http.Error(w, fmt.Sprintf("decode response: %v", err), http.StatusInternalServerError)
		return
	}

	encoded, err := m.codec.Encode(value)
	if err != nil {
		CacheErrors.WithLabelValues("encode").Inc()
		m.logger.Error().Err(err).Str("key", key).Msg("Failed to encode response for cache")
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}

	if err := m.store.Set(ctx, key, encoded, m.ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
	} else {
		CacheStoredBytes.Add(float64(len(encoded)))
		m.logger.Debug().Str("key", key).Dur("ttl", m.ttl).Msg("Cached response")
		setCacheControl(rec.Header(), m.ttl)
	}

	m.flush(w, rec)
}

func (m *Middleware[T]) flush(w http.ResponseWriter, rec *capture.Recorder) {
	if err := rec.WriteTo(w); err != nil {
		m.logger.Debug().Err(err).Msg("Failed to write response")
	}
}

// setCacheControl advertises the remaining lifetime of an entry. Entries
// without expiry get no header.
func setCacheControl(h http.Header, ttl time.Duration) {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		return
	}
	h.Set("Cache-Control", "max-age="+strconv.FormatInt(seconds, 10))
}
