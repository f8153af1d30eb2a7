package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/taskhub/internal/app"
	"github.com/pscheid92/taskhub/internal/auth"
	"github.com/pscheid92/taskhub/internal/cache"
	"github.com/pscheid92/taskhub/internal/config"
	"github.com/pscheid92/taskhub/internal/coordination"
	"github.com/pscheid92/taskhub/internal/database"
	"github.com/pscheid92/taskhub/internal/dispatch"
	"github.com/pscheid92/taskhub/internal/hub"
	"github.com/pscheid92/taskhub/internal/logging"
	"github.com/pscheid92/taskhub/internal/mail"
	"github.com/pscheid92/taskhub/internal/server"
	"github.com/pscheid92/taskhub/internal/sweep"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, sweeper *sweep.Sweeper, h *hub.Hub, lease *coordination.Lease) <-chan struct{} {
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

		sweeper.Stop()
		h.Stop()

		// Hand sweep leadership to a standby right away instead of waiting
		// out the lease TTL.
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer releaseCancel()
		if err := lease.Release(releaseCtx); err != nil {
			slog.Warn("Failed to release sweep lease", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	store := cache.NewStore(redisClient)

	taskRepo := database.NewTaskRepo(pool)
	commentRepo := database.NewCommentRepo(pool)
	notificationRepo := database.NewNotificationRepo(pool)
	userRepo := database.NewUserRepo(pool)

	registry := hub.New(cfg.MaxConnectionsPerUser, clock)
	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)
	dispatcher := dispatch.New(store, notificationRepo, userRepo, registry, mailer)

	appSvc := app.NewService(taskRepo, commentRepo, notificationRepo, store, dispatcher, clock, app.CacheTTLs{
		TaskList:   cfg.TaskListCacheTTL,
		TaskDetail: cfg.TaskDetailCacheTTL,
		Analytics:  cfg.AnalyticsCacheTTL,
	})

	validator, err := auth.NewValidator(cfg.JWTSecret, cfg.JWTTokenLifetime, clock)
	if err != nil {
		slog.Error("Failed to create token validator", "error", err)
		os.Exit(1)
	}

	sweeper := sweep.New(taskRepo, dispatcher, clock, cfg.SweepInterval, cfg.SweepTickTimeout)

	// Only the lease holder sweeps, so scaling out does not multiply the
	// overdue scan. The lease outlives two missed ticks before failover.
	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
	lease := coordination.NewLease(redisClient, instanceID, "sweep:leader", 2*cfg.SweepInterval)
	sweeper.UseLeaderGate(lease)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()

	// Catch up on tasks that went overdue while no instance was running,
	// then keep sweeping on the timer.
	sweeper.RunOnce(sweepCtx)
	go sweeper.Start(sweepCtx)

	srv := server.NewServer(cfg, appSvc, registry, validator, pool, redisClient)

	done := runGracefulShutdown(srv, sweeper, registry, lease)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
