// Package ratelimit short-circuits requests to upstream routes that are known
// to be rate limited. It reads the Retry-After, X-RateLimit-Remaining and
// X-RateLimit-Reset headers of failed upstream responses and blocks the route
// in the shared store until the computed cooldown elapses.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Upstream rate limit headers.
const (
	HeaderRetryAfter = "Retry-After"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
)

// DefaultCooldown is the cooldown in seconds used when the reset timestamp
// cannot be turned into a duration.
const DefaultCooldown int64 = 600

// maxResetHorizon is the largest distance to a reset timestamp, in seconds,
// that fits in a time.Duration.
const maxResetHorizon = int64(math.MaxInt64 / int64(time.Second))

// Headers lists the upstream headers that carry the rate limit signal.
var Headers = []string{HeaderRetryAfter, HeaderRemaining, HeaderReset}

// Signal is the rate limit information carried by an upstream response.
// A nil field means the header was missing or not numeric.
type Signal struct {
	// RetryAfter is the number of seconds to wait before the next request.
	RetryAfter *int64 `json:"retry_after"`

	// Remaining is the number of requests left in the current window.
	Remaining *int64 `json:"ratelimit_remaining"`

	// Reset is the UTC epoch second at which the current window resets.
	Reset *int64 `json:"ratelimit_reset"`
}

// ParseSignal extracts the rate limit signal from response headers.
// It never fails: unusable headers are left nil.
func ParseSignal(h http.Header) Signal {
	return Signal{
		RetryAfter: parseHeader(h, HeaderRetryAfter),
		Remaining:  parseHeader(h, HeaderRemaining),
		Reset:      parseHeader(h, HeaderReset),
	}
}

func parseHeader(h http.Header, name string) *int64 {
	raw := strings.TrimSpace(h.Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Cooldown returns how many seconds the route must stay blocked, following
// GitHub's guidance for handling rate limit errors:
//
//  1. Retry-After wins and is already in seconds.
//  2. Requests remaining (or no remaining header at all) means no active limit.
//  3. With nothing remaining, wait until the reset timestamp.
//
// The result may be negative when the reset time has already passed. Waits
// too long to express as a time.Duration fall back to DefaultCooldown.
func (s Signal) Cooldown(now time.Time) int64 {
	if s.RetryAfter != nil {
		if *s.RetryAfter >= maxResetHorizon {
			return DefaultCooldown
		}
		return *s.RetryAfter
	}

	// A missing remaining header is treated as unlimited.
	if s.Remaining == nil || *s.Remaining > 0 {
		return 0
	}

	if s.Reset == nil || *s.Reset == 0 {
		return 0
	}

	reset := *s.Reset
	if reset > 0 && reset-now.Unix() >= maxResetHorizon {
		return DefaultCooldown
	}

	return int64(time.Unix(reset, 0).Sub(now) / time.Second)
}

// IsLimited reports whether the signal describes an active rate limit.
func (s Signal) IsLimited(now time.Time) bool {
	return s.Cooldown(now) > 0
}

// IsEmpty reports whether none of the rate limit headers were usable.
func (s Signal) IsEmpty() bool {
	return s.RetryAfter == nil && s.Remaining == nil && s.Reset == nil
}
