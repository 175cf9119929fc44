package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placequest/placequest-api/internal/core/domain"
)

func render(t *testing.T, err error, production bool) (*httptest.ResponseRecorder, map[string]any, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.New(&logs), production)(err, c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body, &logs
}

func TestHTTPErrorHandler_DomainKinds(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"missing token", domain.ErrTokenMissing, http.StatusUnauthorized, "token not found"},
		{"malformed token", domain.ErrTokenMalformed, http.StatusUnauthorized, "invalid token format"},
		{"expired token", domain.ErrTokenExpired, http.StatusUnauthorized, "token expired"},
		{"deactivated", domain.ErrAccountDeactivated, http.StatusForbidden, "account deactivated"},
		{"registration mismatch", domain.ErrRegistrationForbidden, http.StatusForbidden, domain.ErrRegistrationForbidden.Message},
		{"email taken", fmt.Errorf("register: %w", domain.ErrEmailTaken), http.StatusConflict, domain.ErrEmailTaken.Message},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "user not registered"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body, _ := render(t, tc.err, false)

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.message, body["message"])
			assert.NotContains(t, body, "error")
		})
	}
}

func TestHTTPErrorHandler_ActiveSession(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rec, body, _ := render(t, &domain.ActiveSessionError{SessionCreatedAt: created}, true)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, true, body["hasActiveSession"])
	assert.Equal(t, "2026-03-01T09:00:00Z", body["sessionCreatedAt"])
}

func TestHTTPErrorHandler_Validation(t *testing.T) {
	err := domain.NewValidationError(map[string]string{"email": "email is required"})

	rec, body, _ := render(t, err, true)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]any{"email": "email is required"}, body["fields"])
}

func TestHTTPErrorHandler_Internal(t *testing.T) {
	cause := errors.New("mongo: connection reset")

	t.Run("development exposes detail", func(t *testing.T) {
		rec, body, logs := render(t, cause, false)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", body["message"])
		assert.Equal(t, cause.Error(), body["error"])
		assert.Contains(t, logs.String(), "unhandled error")
	})

	t.Run("production hides detail", func(t *testing.T) {
		rec, body, _ := render(t, cause, true)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, body, "error")
	})

	t.Run("missing configuration is internal", func(t *testing.T) {
		rec, body, _ := render(t, domain.ErrRegistrationNotConfigured, true)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", body["message"])
	})
}
