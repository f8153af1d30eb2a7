// Command cache-purge removes cached task data from Redis. Useful after a
// manual database fix or a bad deploy left stale entries behind: cached
// pages otherwise linger until their TTL runs out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const scanCount = 100

// defaultPatterns covers every key family the application caches.
var defaultPatterns = []string{"task:detail:*", "task:list:*", "analytics:*"}

func main() {
	var (
		redisURL = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		pattern  = flag.String("pattern", "", "Purge only keys matching this glob (default: all cache families)")
		dryRun   = flag.Bool("dry-run", false, "Dry run mode (don't delete anything)")
		verbose  = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *redisURL == "" {
		log.Fatal("Redis URL required (--redis or REDIS_URL env)")
	}

	// Configure logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	// Connect to Redis
	opts, err := goredis.ParseURL(*redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	rdb := goredis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	slog.Info("Connected to Redis", "url", sanitizeURL(*redisURL))

	patterns := defaultPatterns
	if *pattern != "" {
		patterns = []string{*pattern}
	}

	total := 0
	for _, p := range patterns {
		purged, err := purgePattern(ctx, rdb, p, *dryRun)
		if err != nil {
			log.Fatalf("Purge failed for %q: %v", p, err)
		}
		total += purged
	}

	slog.Info("Purge complete", "keys", total, "dry_run", *dryRun)
}

func purgePattern(ctx context.Context, rdb *goredis.Client, pattern string, dryRun bool) (int, error) {
	start := time.Now()
	var cursor uint64
	purged := 0

	slog.Info("Purging pattern", "pattern", pattern, "dry_run", dryRun)

	for {
		keys, nextCursor, err := rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return purged, fmt.Errorf("scan failed: %w", err)
		}

		if len(keys) > 0 {
			if !dryRun {
				if err := rdb.Del(ctx, keys...).Err(); err != nil {
					return purged, fmt.Errorf("del failed: %w", err)
				}
			}
			for _, key := range keys {
				slog.Debug("Purged key", "key", key)
			}
			purged += len(keys)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	slog.Info("Pattern done",
		"pattern", pattern,
		"keys", purged,
		"duration_ms", time.Since(start).Milliseconds())

	return purged, nil
}

func sanitizeURL(url string) string {
	// Hide password in Redis URL for logging
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			credParts := strings.Split(parts[0], ":")
			if len(credParts) >= 2 {
				return credParts[0] + ":***@" + parts[1]
			}
		}
	}
	return url
}
