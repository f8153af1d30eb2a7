// Package config loads the application configuration from the environment.
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
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	JWTTokenLifetime time.Duration `env:"JWT_TOKEN_LIFETIME" default:"24h"`

	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" default:"5m"`
	SweepTickTimeout time.Duration `env:"SWEEP_TICK_TIMEOUT" default:"2m"`

	TaskListCacheTTL   time.Duration `env:"TASK_LIST_CACHE_TTL" default:"60s"`
	TaskDetailCacheTTL time.Duration `env:"TASK_DETAIL_CACHE_TTL" default:"5m"`
	AnalyticsCacheTTL  time.Duration `env:"ANALYTICS_CACHE_TTL" default:"5m"`

	MaxConnectionsPerUser int     `env:"MAX_CONNECTIONS_PER_USER" default:"50"`
	MaxTotalConnections   int64   `env:"MAX_TOTAL_CONNECTIONS" default:"10000"`
	WSConnectRate         float64 `env:"WS_CONNECT_RATE" default:"10"`
	WSConnectBurst        int     `env:"WS_CONNECT_BURST" default:"20"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" default:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	EmailFrom    string `env:"EMAIL_FROM" default:"taskhub@localhost"`
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
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(cfg.JWTSecret))
	}

	if cfg.SweepInterval < time.Second {
		return fmt.Errorf("SWEEP_INTERVAL must be at least 1s, got %s", cfg.SweepInterval)
	}
	if cfg.SweepTickTimeout >= cfg.SweepInterval {
		return fmt.Errorf("SWEEP_TICK_TIMEOUT (%s) must be shorter than SWEEP_INTERVAL (%s)",
			cfg.SweepTickTimeout, cfg.SweepInterval)
	}

	// SMTP credentials stay optional: without them email delivery runs in
	// degraded mode and every send is logged as skipped.

	return nil
}
