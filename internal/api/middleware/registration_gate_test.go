package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/core/domain"
)

func TestRegistrationGate(t *testing.T) {
	const secret = "s3cr3t-registration-key"

	cases := []struct {
		name     string
		secret   string
		header   string
		want     error
		wantKind domain.ErrorKind
	}{
		{"matching secret", secret, "Bearer " + secret, nil, 0},
		{"missing header", secret, "", domain.ErrRegistrationCredentialMissing, domain.KindUnauthenticated},
		{"wrong scheme", secret, "Basic " + secret, domain.ErrRegistrationCredentialMalformed, domain.KindUnauthenticated},
		{"length mismatch", secret, "Bearer short", domain.ErrRegistrationCredentialInvalid, domain.KindUnauthenticated},
		{"content mismatch", secret, "Bearer s3cr3t-registration-kex", domain.ErrRegistrationForbidden, domain.KindForbidden},
		{"not configured", "", "Bearer " + secret, domain.ErrRegistrationNotConfigured, domain.KindConfiguration},
		{"not configured without header", "", "", domain.ErrRegistrationNotConfigured, domain.KindConfiguration},
		{"configured secret with surrounding whitespace", " " + secret + "\n", "Bearer " + secret, nil, 0},
		{"whitespace-only secret", "  \t", "Bearer " + secret, domain.ErrRegistrationNotConfigured, domain.KindConfiguration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(tc.header)

			called := false
			handler := RegistrationGate(tc.secret)(func(c echo.Context) error {
				called = true
				return c.NoContent(http.StatusOK)
			})

			err := handler(c)
			if tc.want == nil {
				if err != nil || !called || rec.Code != http.StatusOK {
					t.Fatalf("expected pass-through, got err=%v called=%v", err, called)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if domain.KindOf(err) != tc.wantKind {
				t.Fatalf("expected kind %v, got %v", tc.wantKind, domain.KindOf(err))
			}
			if called {
				t.Fatalf("next must not run on rejection")
			}
		})
	}
}
