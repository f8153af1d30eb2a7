package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/pscheid92/taskhub/internal/domain"
	apperrors "github.com/pscheid92/taskhub/internal/errors"
)

// NotificationList is one user's notification feed plus their unread count.
type NotificationList struct {
	Notifications []domain.Notification
	UnreadCount   int
}

func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) (*NotificationList, error) {
	notifications, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.PersistenceError("failed to list notifications", err)
	}

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, apperrors.PersistenceError("failed to count unread notifications", err)
	}

	return &NotificationList{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	n, err := s.notifications.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.events.NotificationRead(n)
	return n, nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.PersistenceError("failed to mark notifications read", err)
	}
	return count, nil
}
