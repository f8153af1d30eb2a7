package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	apperrors "github.com/pscheid92/taskhub/internal/errors"
	"github.com/pscheid92/taskhub/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // browser clients connect from arbitrary origins
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return apperrors.UnauthorizedError("missing token")
	}

	userID, err := s.auth.ValidateToken(token)
	if err != nil {
		return apperrors.UnauthorizedError("invalid or expired token")
	}

	ip := c.RealIP()
	ok, reason := s.guard.Acquire(ip)
	if !ok {
		metrics.WSConnectionsRejected.WithLabelValues(string(reason)).Inc()
		if reason == RejectRateLimit {
			return c.JSON(429, map[string]string{"error": "too many connection attempts"})
		}
		return c.JSON(503, map[string]string{"error": "connection capacity exhausted"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.guard.Release()
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	if err := s.hub.Register(userID, conn); err != nil {
		metrics.WSConnectionsRejected.WithLabelValues("per_user_limit").Inc()
		slog.Warn("rejected websocket registration", "user_id", userID, "error", err)
		_ = conn.Close()
		s.guard.Release()
		return nil
	}

	// Block on the read pump. Subscribers never send application data; the
	// reads service close frames and pong handling until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(userID, conn)
	s.guard.Release()
	return nil
}
