package coordination

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	testRedisURL string
	redContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	redContainer, err = rediscontainer.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	defer func() {
		if err := redContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
		}
	}()
	os.Exit(m.Run())
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	opts, err := redis.ParseURL(testRedisURL)
	require.NoError(t, err)

	client := redis.NewClient(opts)

	ctx := context.Background()
	require.NoError(t, client.FlushAll(ctx).Err())

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestLease_FirstAcquireWins(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	first := NewLease(rdb, "instance-1", "lease:sweep", 10*time.Second)
	second := NewLease(rdb, "instance-2", "lease:sweep", 10*time.Second)

	held, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	holder, err := second.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "instance-1", holder)
}

func TestLease_ReacquireRenews(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	lease := NewLease(rdb, "instance-1", "lease:sweep", 10*time.Second)

	held, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, held)

	// the holder re-acquiring is a renewal, not a conflict
	held, err = lease.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	ttl, err := rdb.TTL(ctx, "lease:sweep").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 5*time.Second)
}

func TestLease_RenewAfterLoss(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	lease := NewLease(rdb, "instance-1", "lease:sweep", 10*time.Second)
	held, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, held)

	// simulate takeover after our TTL expired
	require.NoError(t, rdb.Set(ctx, "lease:sweep", "instance-2", 10*time.Second).Err())

	err = lease.Renew(ctx)
	assert.ErrorIs(t, err, ErrLostLease)
}

func TestLease_TakeoverAfterExpiry(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	first := NewLease(rdb, "instance-1", "lease:sweep", time.Second)
	second := NewLease(rdb, "instance-2", "lease:sweep", time.Second)

	held, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, held)

	require.Eventually(t, func() bool {
		held, err := second.Acquire(ctx)
		return err == nil && held
	}, 5*time.Second, 100*time.Millisecond)
}

func TestLease_ReleaseFreesImmediately(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	first := NewLease(rdb, "instance-1", "lease:sweep", 10*time.Second)
	second := NewLease(rdb, "instance-2", "lease:sweep", 10*time.Second)

	held, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, first.Release(ctx))

	held, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestLease_ReleaseByNonHolderIsNoop(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	first := NewLease(rdb, "instance-1", "lease:sweep", 10*time.Second)
	second := NewLease(rdb, "instance-2", "lease:sweep", 10*time.Second)

	held, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, second.Release(ctx))

	holder, err := first.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "instance-1", holder)
}
