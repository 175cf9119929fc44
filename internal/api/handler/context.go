package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/api/middleware"
	"github.com/placequest/placequest-api/internal/core/domain"
)

// currentSession returns the session attached by the Session middleware.
// A missing session means the route was wired without authentication; the
// request is rejected as unauthenticated rather than served anonymously.
func currentSession(c echo.Context) (*domain.Session, error) {
	session, _ := c.Get(middleware.SessionKey).(*domain.Session)
	if session == nil || session.User == nil || session.Token == nil {
		return nil, domain.ErrTokenMissing
	}
	return session, nil
}

// optionalSession returns the session attached by OptionalSession, or nil.
func optionalSession(c echo.Context) *domain.Session {
	session, _ := c.Get(middleware.SessionKey).(*domain.Session)
	return session
}
