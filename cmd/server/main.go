package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rgupta1997/fanverse-live/internal/domain"
	"github.com/rgupta1997/fanverse-live/internal/engine"
	"github.com/rgupta1997/fanverse-live/internal/eventpub"
	"github.com/rgupta1997/fanverse-live/internal/feed"
	"github.com/rgupta1997/fanverse-live/internal/platform/config"
	"github.com/rgupta1997/fanverse-live/internal/platform/logging"
	"github.com/rgupta1997/fanverse-live/internal/server"
	"github.com/rgupta1997/fanverse-live/internal/snapshot"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not initialized yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, redisURL string) *goredis.Client {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *server.Server, eng *engine.Engine) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		eng.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	store, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		slog.Error("Failed to initialize snapshot store", "dir", cfg.SnapshotDir, "error", err)
		os.Exit(1)
	}

	feedClient := feed.NewClient(cfg.FeedBaseURL, cfg.FetchTimeout)

	// Redis is optional: without it, broadcast mirroring is a no-op and
	// readiness skips the Redis check.
	var events domain.EventPublisher = eventpub.Noop{}
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient = setupRedis(context.Background(), cfg.RedisURL)
		defer func() { _ = redisClient.Close() }()
		events = eventpub.NewPublisher(redisClient)
	}

	eng := engine.New(feedClient, store, events, clock, engine.Config{
		PollInterval:       cfg.PollInterval,
		MaxViewersPerMatch: cfg.MaxViewersPerMatch,
	})

	var srv *server.Server
	if redisClient != nil {
		srv = server.NewServer(cfg, eng, store, redisClient)
	} else {
		// pass nil explicitly to avoid a typed-nil interface
		srv = server.NewServer(cfg, eng, store, nil)
	}

	done := runGracefulShutdown(srv, eng)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
