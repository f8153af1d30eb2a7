package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RejectReason labels why the guard refused a connection attempt.
type RejectReason string

const (
	RejectGlobalLimit RejectReason = "global_limit"
	RejectRateLimit   RejectReason = "rate_limit"
)

const (
	guardCleanupEvery = 5 * time.Minute
	guardIdleCutoff   = 10 * time.Minute
)

// ConnectionGuard protects the websocket endpoint before a connection ever
// reaches the hub: a hard cap on total concurrent connections per instance
// plus a per-IP token bucket on connection attempts. Per-user connection
// caps are enforced separately by the hub at registration time.
type ConnectionGuard struct {
	current atomic.Int64
	max     int64

	mu        sync.Mutex
	buckets   map[string]*guardBucket
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type guardBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewConnectionGuard creates a guard allowing at most maxTotal concurrent
// connections and connectsPerSecond new attempts per source IP, with the
// given burst.
func NewConnectionGuard(maxTotal int64, connectsPerSecond float64, burst int) *ConnectionGuard {
	return &ConnectionGuard{
		max:       maxTotal,
		buckets:   make(map[string]*guardBucket),
		rate:      rate.Limit(connectsPerSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(guardCleanupEvery),
	}
}

// Acquire claims a connection slot for ip. On refusal it reports the reason
// and claims nothing; on success the caller must Release exactly once.
func (g *ConnectionGuard) Acquire(ip string) (bool, RejectReason) {
	// Rate check first so hammering clients never touch the global counter.
	if !g.allow(ip) {
		return false, RejectRateLimit
	}

	for {
		current := g.current.Load()
		if current >= g.max {
			return false, RejectGlobalLimit
		}
		if g.current.CompareAndSwap(current, current+1) {
			return true, ""
		}
	}
}

// Release returns a previously acquired slot.
func (g *ConnectionGuard) Release() {
	g.current.Add(-1)
}

// Current returns the number of held connection slots.
func (g *ConnectionGuard) Current() int64 {
	return g.current.Load()
}

func (g *ConnectionGuard) allow(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if now.After(g.cleanupAt) {
		g.dropIdleBuckets(now)
		g.cleanupAt = now.Add(guardCleanupEvery)
	}

	bucket, ok := g.buckets[ip]
	if !ok {
		bucket = &guardBucket{limiter: rate.NewLimiter(g.rate, g.burst)}
		g.buckets[ip] = bucket
	}
	bucket.lastSeen = now

	return bucket.limiter.Allow()
}

// dropIdleBuckets forgets IPs without a recent attempt. Must be called with
// mu held.
func (g *ConnectionGuard) dropIdleBuckets(now time.Time) {
	cutoff := now.Add(-guardIdleCutoff)
	for ip, bucket := range g.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(g.buckets, ip)
		}
	}
}

// activeBuckets returns the number of tracked IPs.
func (g *ConnectionGuard) activeBuckets() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buckets)
}
