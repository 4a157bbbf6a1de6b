// Package config loads the service settings from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/github-api-cache/pkg/logging"
	"github.com/joho/godotenv"
)

var (
	// ErrMissingVariable is returned when a required variable is unset.
	ErrMissingVariable = errors.New("missing environment variable")

	// ErrInvalidVariable is returned when a variable cannot be parsed.
	ErrInvalidVariable = errors.New("invalid environment variable")
)

// Defaults.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultGitHubBaseURL   = "https://api.github.com"
	DefaultGitHubAgent     = "github-api-cache"
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultRedisURL        = "redis://localhost:6379/0"
	DefaultRedisTimeout    = 3 * time.Second
	DefaultCacheTTL        = 600 * time.Second
	DefaultLogLevel        = "info"
)

// Settings is the complete service configuration.
type Settings struct {
	Host string
	Port int

	GitHub GitHubSettings
	Redis  RedisSettings

	// CacheTTL is the expiration of cached responses. Zero disables expiry.
	CacheTTL time.Duration

	LogLevel  string
	LogPretty bool
}

// GitHubSettings configures the upstream client.
type GitHubSettings struct {
	Token     string
	BaseURL   string
	UserAgent string
	MaxRPS    float64
	Timeout   time.Duration
}

// RedisSettings configures the shared store.
type RedisSettings struct {
	URL      string
	Timeout  time.Duration
	PoolSize int
}

// Addr returns the listen address.
func (s Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoadEnvFiles loads variables from the given .env files, skipping files that
// do not exist. Variables already present in the environment win.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the settings from the process environment.
func Load() (Settings, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the settings through lookup.
func FromLookup(lookup func(string) (string, bool)) (Settings, error) {
	env := reader{lookup: lookup}

	s := Settings{
		Host: env.str("HOST", DefaultHost),
		Port: env.integer("PORT", DefaultPort),
		GitHub: GitHubSettings{
			Token:     env.required("GITHUB_TOKEN"),
			BaseURL:   env.str("GITHUB_API_BASE_URL", DefaultGitHubBaseURL),
			UserAgent: env.str("GITHUB_USER_AGENT", DefaultGitHubAgent),
			MaxRPS:    env.float("GITHUB_MAX_RPS", 0),
			Timeout:   env.duration("UPSTREAM_TIMEOUT", DefaultUpstreamTimeout),
		},
		Redis: RedisSettings{
			URL:      env.str("REDIS_URL", DefaultRedisURL),
			Timeout:  env.duration("REDIS_TIMEOUT", DefaultRedisTimeout),
			PoolSize: env.integer("REDIS_POOL_SIZE", 0),
		},
		CacheTTL:  time.Duration(env.integer("CACHE_TTL", int(DefaultCacheTTL/time.Second))) * time.Second,
		LogLevel:  strings.ToLower(env.str("LOG_LEVEL", DefaultLogLevel)),
		LogPretty: env.boolean("LOG_PRETTY", false),
	}

	if env.err == nil {
		env.validate(s)
	}
	if env.err != nil {
		return Settings{}, env.err
	}
	return s, nil
}

// reader keeps the first error so Load reports one problem at a time.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) get(name string) (string, bool) {
	v, ok := r.lookup(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) invalid(name, value string, err error) {
	r.fail(fmt.Errorf("%w: %s=%q: %v", ErrInvalidVariable, name, value, err))
}

func (r *reader) str(name, def string) string {
	if v, ok := r.get(name); ok {
		return v
	}
	return def
}

func (r *reader) required(name string) string {
	v, ok := r.get(name)
	if !ok {
		r.fail(fmt.Errorf("%w: %s", ErrMissingVariable, name))
	}
	return v
}

func (r *reader) integer(name string, def int) int {
	v, ok := r.get(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.invalid(name, v, err)
		return def
	}
	return n
}

func (r *reader) float(name string, def float64) float64 {
	v, ok := r.get(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.invalid(name, v, err)
		return def
	}
	return f
}

func (r *reader) duration(name string, def time.Duration) time.Duration {
	v, ok := r.get(name)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.invalid(name, v, err)
		return def
	}
	return d
}

func (r *reader) boolean(name string, def bool) bool {
	v, ok := r.get(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.invalid(name, v, err)
		return def
	}
	return b
}

func (r *reader) validate(s Settings) {
	switch {
	case s.Port < 1 || s.Port > 65535:
		r.invalid("PORT", strconv.Itoa(s.Port), errors.New("must be between 1 and 65535"))
	case s.GitHub.MaxRPS < 0:
		r.invalid("GITHUB_MAX_RPS", strconv.FormatFloat(s.GitHub.MaxRPS, 'f', -1, 64), errors.New("must be >= 0"))
	case s.GitHub.Timeout <= 0:
		r.invalid("UPSTREAM_TIMEOUT", s.GitHub.Timeout.String(), errors.New("must be positive"))
	case s.Redis.Timeout <= 0:
		r.invalid("REDIS_TIMEOUT", s.Redis.Timeout.String(), errors.New("must be positive"))
	case s.Redis.PoolSize < 0:
		r.invalid("REDIS_POOL_SIZE", strconv.Itoa(s.Redis.PoolSize), errors.New("must be >= 0"))
	case s.CacheTTL < 0:
		r.invalid("CACHE_TTL", strconv.Itoa(int(s.CacheTTL/time.Second)), errors.New("must be >= 0"))
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		r.invalid("LOG_LEVEL", s.LogLevel, err)
	}
}
