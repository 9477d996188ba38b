package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rgupta1997/fanverse-live/internal/domain"
	apperrors "github.com/rgupta1997/fanverse-live/internal/errors"
	"github.com/rgupta1997/fanverse-live/internal/platform/config"
)

// redisHealthChecker is the minimal surface needed for readiness probing.
type redisHealthChecker interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	engine    domain.Engine
	store     domain.SnapshotStore
	redis     redisHealthChecker
	startTime time.Time
}

// NewServer wires the HTTP surface. redis may be nil when no event mirror is
// configured; readiness then skips the Redis check.
func NewServer(cfg *config.Config, engine domain.Engine, store domain.SnapshotStore, redis redisHealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler

	srv := &Server{
		echo:      e,
		config:    cfg,
		engine:    engine,
		store:     store,
		redis:     redis,
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
