package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/api/metrics"
	"github.com/placequest/placequest-api/internal/core/domain"
)

// RegistrationGate admits a request only when it carries the shared
// registration secret as a bearer credential. An empty secret rejects every
// request. Surrounding whitespace in the configured secret is ignored, as it
// is in the presented credential. The secret is never logged.
func RegistrationGate(secret string) echo.MiddlewareFunc {
	expected := []byte(strings.TrimSpace(secret))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(expected) == 0 {
				metrics.RegistrationGateRejectionsTotal.WithLabelValues("unconfigured").Inc()
				return domain.ErrRegistrationNotConfigured
			}

			raw, err := bearerToken(c)
			switch {
			case errors.Is(err, domain.ErrTokenMissing):
				metrics.RegistrationGateRejectionsTotal.WithLabelValues("missing").Inc()
				return domain.ErrRegistrationCredentialMissing
			case err != nil:
				metrics.RegistrationGateRejectionsTotal.WithLabelValues("malformed").Inc()
				return domain.ErrRegistrationCredentialMalformed
			}

			got := []byte(raw)
			// Unequal lengths reveal nothing beyond the length itself.
			if len(got) != len(expected) {
				metrics.RegistrationGateRejectionsTotal.WithLabelValues("length").Inc()
				return domain.ErrRegistrationCredentialInvalid
			}
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				metrics.RegistrationGateRejectionsTotal.WithLabelValues("mismatch").Inc()
				return domain.ErrRegistrationForbidden
			}

			return next(c)
		}
	}
}
