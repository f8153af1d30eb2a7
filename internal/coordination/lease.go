// Package coordination provides a Redis-backed leadership lease so that
// exactly one instance runs singleton background work, such as the overdue
// sweep, while the others stand by.
package coordination

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLostLease is returned when a renewal finds another instance holding
// the lease.
var ErrLostLease = errors.New("leadership lease lost")

// renewScript extends the TTL only while we still hold the lease.
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("EXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`

// releaseScript deletes the lease only while we still hold it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Lease is a single-holder lock with a TTL. The holder writes its instance
// ID under a well-known key; when the holder crashes the key expires and
// another instance can take over. All operations are safe to call from any
// instance at any time.
type Lease struct {
	redis      *redis.Client
	instanceID string
	key        string
	ttl        time.Duration
}

// NewLease creates a lease on key with the given TTL. instanceID must be
// unique per process; ttl should comfortably exceed the caller's renewal
// interval so a slow renewal does not trigger a spurious takeover.
func NewLease(rdb *redis.Client, instanceID, key string, ttl time.Duration) *Lease {
	return &Lease{
		redis:      rdb,
		instanceID: instanceID,
		key:        key,
		ttl:        ttl,
	}
}

// Acquire claims or renews the lease. It reports true when this instance
// holds the lease afterwards: either it won a fresh claim, or it already
// held the lease and the TTL was extended.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	claimed, err := l.redis.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if claimed {
		return true, nil
	}

	if err := l.Renew(ctx); err != nil {
		if errors.Is(err, ErrLostLease) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Renew extends the TTL. Returns ErrLostLease when another instance holds
// the lease.
func (l *Lease) Renew(ctx context.Context) error {
	result, err := l.redis.Eval(ctx, renewScript, []string{l.key}, l.instanceID, int(l.ttl.Seconds())).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return ErrLostLease
	}
	return nil
}

// Holder returns the instance ID currently holding the lease, or "" when
// the lease is free.
func (l *Lease) Holder(ctx context.Context) (string, error) {
	holder, err := l.redis.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return holder, nil
}

// Release voluntarily gives up the lease during graceful shutdown, letting
// a standby take over immediately instead of waiting out the TTL.
func (l *Lease) Release(ctx context.Context) error {
	return l.redis.Eval(ctx, releaseScript, []string{l.key}, l.instanceID).Err()
}
