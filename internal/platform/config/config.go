package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	FeedBaseURL string `env:"FEED_BASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	SnapshotDir string `env:"SNAPSHOT_DIR" default:"data/snapshots"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	PollInterval       time.Duration `env:"POLL_INTERVAL" default:"30s"`
	FetchTimeout       time.Duration `env:"FETCH_TIMEOUT" default:"10s"`
	MaxViewersPerMatch int           `env:"MAX_VIEWERS_PER_MATCH" default:"200"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.FeedBaseURL == "" {
		return fmt.Errorf("FEED_BASE_URL is required")
	}
	if cfg.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", cfg.PollInterval)
	}
	if cfg.MaxViewersPerMatch < 1 {
		return fmt.Errorf("MAX_VIEWERS_PER_MATCH must be positive, got %d", cfg.MaxViewersPerMatch)
	}
	return nil
}
