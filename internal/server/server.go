package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/taskhub/internal/app"
	"github.com/pscheid92/taskhub/internal/auth"
	"github.com/pscheid92/taskhub/internal/config"
	apperrors "github.com/pscheid92/taskhub/internal/errors"
	"github.com/pscheid92/taskhub/internal/hub"
	"github.com/pscheid92/taskhub/internal/platform/correlation"
)

// redisHealthChecker is the minimal Redis surface needed by readiness checks.
type redisHealthChecker interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

// postgresHealthChecker is the minimal PostgreSQL surface needed by
// readiness checks.
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       *app.Service
	hub       *hub.Hub
	auth      *auth.Validator
	db        postgresHealthChecker
	redis     redisHealthChecker
	guard     *ConnectionGuard
	startTime time.Time
}

func NewServer(
	cfg *config.Config,
	svc *app.Service,
	h *hub.Hub,
	validator *auth.Validator,
	db postgresHealthChecker,
	redis redisHealthChecker,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(correlationMiddleware)
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       svc,
		hub:       h,
		auth:      validator,
		db:        db,
		redis:     redis,
		guard:     NewConnectionGuard(cfg.MaxTotalConnections, cfg.WSConnectRate, cfg.WSConnectBurst),
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// correlationMiddleware tags the request context with a correlation ID so
// every log line emitted while serving it can be tied back together. An
// incoming X-Request-ID is honoured, otherwise a fresh ID is minted.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get("X-Request-ID")
		if id == "" {
			id = correlation.NewID()
		}

		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set("X-Request-ID", id)

		return next(c)
	}
}

func (s *Server) Start() error {
	slog.Info("starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
