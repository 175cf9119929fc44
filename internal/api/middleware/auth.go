package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/api/metrics"
	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

// Context keys set on an authenticated request.
const (
	SessionKey  = "session"
	UserIDKey   = "user_id"
	RawTokenKey = "raw_token"
)

// Session rejects requests without a valid bearer session and attaches the
// resolved session to the context otherwise.
func Session(validator ports.SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				metrics.SessionValidationsTotal.WithLabelValues(reasonFor(err)).Inc()
				return err
			}

			session, err := validator.Authenticate(c.Request().Context(), raw)
			if err != nil {
				metrics.SessionValidationsTotal.WithLabelValues(reasonFor(err)).Inc()
				return err
			}

			metrics.SessionValidationsTotal.WithLabelValues("ok").Inc()
			attach(c, session)
			return next(c)
		}
	}
}

// OptionalSession attaches a session when the request carries a valid one and
// otherwise lets the request through anonymously.
func OptionalSession(validator ports.SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				metrics.SessionValidationsTotal.WithLabelValues("anonymous").Inc()
				return next(c)
			}

			session, err := validator.Authenticate(c.Request().Context(), raw)
			if err != nil {
				metrics.SessionValidationsTotal.WithLabelValues(reasonFor(err)).Inc()
				return next(c)
			}

			metrics.SessionValidationsTotal.WithLabelValues("ok").Inc()
			attach(c, session)
			return next(c)
		}
	}
}

func attach(c echo.Context, session *domain.Session) {
	c.Set(SessionKey, session)
	c.Set(UserIDKey, session.User.ID)
	c.Set(RawTokenKey, session.RawToken)
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", domain.ErrTokenMissing
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrTokenMalformed
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", domain.ErrTokenMalformed
	}
	return token, nil
}

// reasonFor returns the metric label for a validation failure.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, domain.ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, domain.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domain.ErrTokenOwnerMissing):
		return "owner_missing"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "account_deactivated"
	case errors.Is(err, domain.ErrSessionNotOwned):
		return "session_not_owned"
	default:
		return "error"
	}
}
