package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/taskhub/internal/domain"
)

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	TaskID    *uuid.UUID `json:"task_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func (s *Server) handleListNotifications(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	limit, err := intQueryParam(c, "limit")
	if err != nil {
		return err
	}

	list, err := s.app.ListNotifications(c.Request().Context(), userID, limit)
	if err != nil {
		return err
	}

	notifications := make([]notificationResponse, 0, len(list.Notifications))
	for i := range list.Notifications {
		notifications = append(notifications, toNotificationResponse(&list.Notifications[i]))
	}

	return c.JSON(200, map[string]any{
		"notifications": notifications,
		"unread_count":  list.UnreadCount,
	})
}

func (s *Server) handleMarkNotificationRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	n, err := s.app.MarkNotificationRead(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}

	return c.JSON(200, toNotificationResponse(n))
}

func (s *Server) handleMarkAllNotificationsRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	updated, err := s.app.MarkAllNotificationsRead(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(200, map[string]int{"updated": updated})
}
