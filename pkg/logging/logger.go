// Package logging provides structured logging configuration using zerolog
// and the HTTP access log middleware of the proxy.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultService is the "service" field of every log line.
const DefaultService = "github-proxy"

// LogLevel is a LOG_LEVEL value.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names the part of the proxy that emits a line.
type Component string

const (
	ComponentServer    Component = "server"
	ComponentAPI       Component = "api"
	ComponentCache     Component = "cache"
	ComponentRateLimit Component = "ratelimit"
	ComponentGitHub    Component = "github-client"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty enables console output for local runs; the default is JSON.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Service is attached to every line; empty omits the field.
	Service string
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Output:  os.Stderr,
		Service: DefaultService,
	}
}

// Setup configures the global zerolog logger and returns it. Unknown levels
// fall back to info; durations are logged in milliseconds.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel converts a LOG_LEVEL value to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger returns the global logger tagged with component.
func NewLogger(component Component) zerolog.Logger {
	return For(log.Logger, component)
}

// For returns base tagged with component.
func For(base zerolog.Logger, component Component) zerolog.Logger {
	return base.With().Str("component", string(component)).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Upstream request flow (endpoint, path)
//   - Failed response writes (client went away)
//
// Info: Normal operation events
//   - Access log lines
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit windows opened by GitHub
//   - Store errors on the cache path (request forwarded uncached)
//   - GitHub 4xx/5xx responses
//
// Error: Error conditions requiring attention
//   - Store errors on the breaker path (request refused with 500)
//   - Upstream payloads that do not match the route's response type
//   - Configuration errors
//
// Context Fields:
//   - component: see Component (server, api, cache, ratelimit, github-client)
//   - service: DefaultService unless configured otherwise
//   - request_id: X-Request-ID of the inbound request
//   - key: store key of a cache entry or rate limit sentinel
//   - endpoint: GitHub endpoint label
//   - status: HTTP status code
//   - error_class: error classification (client, server, rate_limit, network)
//   - cooldown: seconds a rate limit window stays open
//   - ttl: cache entry TTL
