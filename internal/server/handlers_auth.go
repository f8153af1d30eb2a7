package server

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/pscheid92/taskhub/internal/errors"
)

const bearerPrefix = "Bearer "

// requireAuth validates the bearer token on the Authorization header and
// stashes the authenticated user ID in the request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return apperrors.UnauthorizedError("missing authorization header")
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			return apperrors.UnauthorizedError("authorization header must use the Bearer scheme")
		}

		userID, err := s.auth.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			return apperrors.UnauthorizedError("invalid or expired token")
		}

		c.Set("userID", userID)
		return next(c)
	}
}

// currentUserID reads the authenticated user ID placed by requireAuth.
func currentUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get("userID").(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalError("invalid user ID in context", nil)
	}
	return userID, nil
}

// pathUUID parses the named path parameter as a UUID.
func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid UUID format").WithContext(name, raw)
	}
	return id, nil
}
