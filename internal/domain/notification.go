package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationTaskOverdue  NotificationKind = "task_overdue"
	NotificationTaskAssigned NotificationKind = "task_assigned"
	NotificationCommentAdded NotificationKind = "comment_added"
)

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TaskID    *uuid.UUID
	Kind      NotificationKind
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

type NotificationRepository interface {
	// Create persists a notification keyed on (user, dedupKey). Redelivering
	// the same event therefore cannot produce a second row for the same
	// recipient; the return value reports whether a row was actually
	// inserted.
	Create(ctx context.Context, n *Notification, dedupKey string) (bool, error)

	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead flips the read flag of one notification owned by userID.
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
}
