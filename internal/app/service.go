// Package app is the application layer, the only component that references
// multiple domain components. It orchestrates all use cases: task and comment
// mutations run commit-first and then hand the resulting event to the
// dispatcher; reads go through the cache.
package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/taskhub/internal/domain"
)

// EventPublisher is the dispatcher seam. Dispatch runs the full pipeline for
// a committed mutation; NotificationRead pushes a read-state change to its
// owner only.
type EventPublisher interface {
	Dispatch(ctx context.Context, ev *domain.Event)
	NotificationRead(n *domain.Notification)
}

type CacheTTLs struct {
	TaskList   time.Duration
	TaskDetail time.Duration
	Analytics  time.Duration
}

type Service struct {
	tasks         domain.TaskRepository
	comments      domain.CommentRepository
	notifications domain.NotificationRepository
	cache         domain.Cache
	events        EventPublisher
	clock         clockwork.Clock
	ttls          CacheTTLs
}

func NewService(
	tasks domain.TaskRepository,
	comments domain.CommentRepository,
	notifications domain.NotificationRepository,
	cache domain.Cache,
	events EventPublisher,
	clock clockwork.Clock,
	ttls CacheTTLs,
) *Service {
	return &Service{
		tasks:         tasks,
		comments:      comments,
		notifications: notifications,
		cache:         cache,
		events:        events,
		clock:         clock,
		ttls:          ttls,
	}
}

// cachedJSON reads key from the cache and unmarshals it into out. A hit that
// fails to decode counts as a miss; the entry will be overwritten by the
// subsequent fill.
func (s *Service) cachedJSON(ctx context.Context, key string, out any) bool {
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *Service) fillCache(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, data, ttl)
}
