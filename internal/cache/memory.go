package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/taskhub/internal/domain"
)

// Memory is the in-process cache implementation. Entries carry their expiry
// instant and Get treats an expired entry as absent without waiting for the
// janitor to run, matching the lazy-expiry read path of the Redis store.
type Memory struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

var _ domain.Cache = (*Memory)(nil)

// NewMemory creates an empty in-memory cache using the given clock.
func NewMemory(clock clockwork.Clock) *Memory {
	return &Memory{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.expired(entry) {
		return nil, false
	}
	return entry.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: expiresAt}
	m.mu.Unlock()
}

func (m *Memory) Delete(_ context.Context, keys ...string) {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

func (m *Memory) DeleteMatching(_ context.Context, pattern string) {
	m.mu.Lock()
	for key := range m.entries {
		if matched, _ := path.Match(pattern, key); matched {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}

// Evict removes expired entries for memory hygiene. Reads do not depend on
// it having run.
func (m *Memory) Evict() {
	m.mu.Lock()
	for key, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !m.clock.Now().Before(entry.expiresAt)
}
