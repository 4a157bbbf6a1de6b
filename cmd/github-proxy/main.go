package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/github-api-cache/pkg/api"
	"github.com/Sternrassler/github-api-cache/pkg/config"
	"github.com/Sternrassler/github-api-cache/pkg/github"
	"github.com/Sternrassler/github-api-cache/pkg/logging"
	"github.com/Sternrassler/github-api-cache/pkg/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "load env files: %v\n", err)
		os.Exit(1)
	}

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:   logging.LogLevel(settings.LogLevel),
		Pretty:  settings.LogPretty,
		Output:  os.Stderr,
		Service: logging.DefaultService,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// run connects the dependencies and serves until ctx is cancelled.
func run(ctx context.Context, settings config.Settings, logger zerolog.Logger) error {
	serverLog := logging.For(logger, logging.ComponentServer)

	redisClient, err := store.NewRedisClient(store.RedisOptions{
		URL:      settings.Redis.URL,
		Timeout:  settings.Redis.Timeout,
		PoolSize: settings.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	redisStore := store.NewRedis(redisClient)
	defer redisStore.Close()

	pingCtx, cancel := context.WithTimeout(ctx, settings.Redis.Timeout)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	serverLog.Info().Str("redis_addr", redisClient.Options().Addr).Msg("Connected to Redis")

	githubClient, err := github.New(github.Config{
		BaseURL:   settings.GitHub.BaseURL,
		Token:     settings.GitHub.Token,
		UserAgent: settings.GitHub.UserAgent,
		Timeout:   settings.GitHub.Timeout,
		MaxRPS:    settings.GitHub.MaxRPS,
	})
	if err != nil {
		return fmt.Errorf("create github client: %w", err)
	}
	githubClient.SetLogger(logging.For(logger, logging.ComponentGitHub))

	handler := api.NewRouter(api.Options{
		Store:    redisStore,
		GitHub:   githubClient,
		Ready:    redisStore,
		CacheTTL: settings.CacheTTL,
		Logger:   logger,
	})

	ln, err := net.Listen("tcp", settings.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.Addr(), err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverLog.Info().
		Str("addr", ln.Addr().String()).
		Str("github_api", settings.GitHub.BaseURL).
		Dur("cache_ttl", settings.CacheTTL).
		Msg("Starting GitHub proxy server")

	return serve(ctx, srv, ln, serverLog)
}

// serve runs srv on ln and shuts it down gracefully once ctx is done.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
