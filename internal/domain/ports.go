package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Cache is the key/value cache consumed by the read and invalidation paths.
// Implementations absorb backend failures internally: a broken cache reads
// as a miss and writes/deletes become no-ops, so callers never branch on
// cache availability.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)

	// DeleteMatching removes every key matching a glob pattern such as
	// "task:list:*", clearing a whole query family in one call.
	DeleteMatching(ctx context.Context, pattern string)
}

// Broadcaster delivers serialized event payloads to live subscriber
// connections. Delivery is best-effort: a slow or dead connection is dropped,
// never retried, and never blocks delivery to other connections.
type Broadcaster interface {
	Broadcast(payload []byte)
	SendToUser(userID uuid.UUID, payload []byte)
}

// EventSink consumes committed-mutation events. Implemented by the
// dispatcher; faked in tests of mutation producers.
type EventSink interface {
	Dispatch(ctx context.Context, event *Event)
}

// Mailer sends outbound notification email. Fire-and-forget: implementations
// log failures and missing credentials, callers never see them.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
