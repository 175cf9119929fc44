package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/core/domain"
)

// RequireAbility enforces that the session token grants at least one of the
// given abilities. It must run after Session.
func RequireAbility(abilities ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, _ := c.Get(SessionKey).(*domain.Session)
			if session == nil {
				return domain.ErrTokenMissing
			}
			for _, a := range abilities {
				if session.Token.Can(a) {
					return next(c)
				}
			}
			return domain.ErrAbilityDenied
		}
	}
}
