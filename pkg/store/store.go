// Package store provides the TTL-capable key-value store shared by the cache
// and rate limit interceptors.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested key does not exist.
// Connectivity and timeout failures are reported as other errors.
var ErrNotFound = errors.New("key not found")

// Store is a key-value store holding opaque JSON payloads with an optional TTL.
type Store interface {
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of 0 stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// TTL returns the remaining time to live of key, 0 if the key never
	// expires, or ErrNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
