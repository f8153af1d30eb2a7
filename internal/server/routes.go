package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Task API (authenticated)
	s.echo.POST("/api/tasks", s.handleCreateTask, s.requireAuth)
	s.echo.GET("/api/tasks", s.handleListTasks, s.requireAuth)
	s.echo.GET("/api/tasks/summary", s.handleTaskSummary, s.requireAuth)
	s.echo.GET("/api/tasks/:id", s.handleGetTask, s.requireAuth)
	s.echo.PUT("/api/tasks/:id", s.handleUpdateTask, s.requireAuth)
	s.echo.DELETE("/api/tasks/:id", s.handleDeleteTask, s.requireAuth)

	// Comment API (authenticated)
	s.echo.POST("/api/tasks/:id/comments", s.handleCreateComment, s.requireAuth)
	s.echo.GET("/api/tasks/:id/comments", s.handleListComments, s.requireAuth)
	s.echo.PUT("/api/comments/:id", s.handleUpdateComment, s.requireAuth)
	s.echo.DELETE("/api/comments/:id", s.handleDeleteComment, s.requireAuth)

	// Notification API (authenticated)
	s.echo.GET("/api/notifications", s.handleListNotifications, s.requireAuth)
	s.echo.POST("/api/notifications/read-all", s.handleMarkAllNotificationsRead, s.requireAuth)
	s.echo.POST("/api/notifications/:id/read", s.handleMarkNotificationRead, s.requireAuth)

	// Live updates (token authenticated via query parameter, since browser
	// websocket clients cannot set an Authorization header)
	s.echo.GET("/ws", s.handleWebSocket)
}
