package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/placequest/placequest-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Success          bool              `json:"success"`
	Message          string            `json:"message"`
	Error            string            `json:"error,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
	HasActiveSession bool              `json:"hasActiveSession,omitempty"`
	SessionCreatedAt *time.Time        `json:"sessionCreatedAt,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain error
// kinds to HTTP status codes and renders {"success":false,"message":...}.
// Unexpected errors are logged; their detail reaches the client only outside
// production.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c, production)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context, production bool) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Message: fmt.Sprintf("%v", he.Message)}
	}

	var active *domain.ActiveSessionError
	if errors.As(err, &active) {
		createdAt := active.SessionCreatedAt
		return http.StatusConflict, errorResponse{
			Message:          active.Error(),
			HasActiveSession: true,
			SessionCreatedAt: &createdAt,
		}
	}

	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		return http.StatusUnprocessableEntity, errorResponse{
			Message: invalid.Error(),
			Fields:  invalid.Fields,
		}
	}

	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindUnauthenticated:
			return http.StatusUnauthorized, errorResponse{Message: de.Message}
		case domain.KindForbidden:
			return http.StatusForbidden, errorResponse{Message: de.Message}
		case domain.KindConflict:
			return http.StatusConflict, errorResponse{Message: de.Message}
		case domain.KindNotFound:
			return http.StatusNotFound, errorResponse{Message: de.Message}
		case domain.KindValidation:
			return http.StatusUnprocessableEntity, errorResponse{Message: de.Message}
		}
	}

	// Configuration and unexpected errors: log the real cause.
	log.Error().
		Err(err).
		Str("kind", domain.KindOf(err).String()).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	resp := errorResponse{Message: "internal server error"}
	if !production {
		resp.Error = err.Error()
	}
	return http.StatusInternalServerError, resp
}
