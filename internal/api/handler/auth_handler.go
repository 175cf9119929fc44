package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/api/metrics"
	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Name        string         `json:"name" validate:"required,max=100"`
	Username    string         `json:"username" validate:"required,min=3,max=30,excludesall= @/"`
	Email       string         `json:"email" validate:"required,email,max=255"`
	Avatar      string         `json:"avatar" validate:"omitempty,url"`
	Preferences map[string]any `json:"preferences"`
}

type loginRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	Name       *string `json:"name" validate:"omitempty,max=100"`
	Avatar     *string `json:"avatar" validate:"omitempty,url"`
	DeviceName string  `json:"deviceName" validate:"omitempty,max=100"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type loginResponse struct {
	User        *domain.User `json:"user"`
	Token       string       `json:"token"`
	AccessToken string       `json:"accessToken,omitempty"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

type sessionInfo struct {
	Name       string     `json:"name"`
	Abilities  []string   `json:"abilities"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt time.Time  `json:"lastUsedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

type statusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user"`
	Session       sessionInfo  `json:"session"`
}

// Register creates a new user account. The route is guarded by the
// registration gate; no session token is issued.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     RegistrationSecret
// @Param        body  body      registerRequest  true  "Profile fields"
// @Success      201   {object}  envelope
// @Failure      401   {object}  envelope
// @Failure      403   {object}  envelope
// @Failure      409   {object}  envelope
// @Failure      422   {object}  envelope
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:        req.Name,
		Username:    req.Username,
		Email:       req.Email,
		AvatarURL:   req.Avatar,
		Preferences: req.Preferences,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, ok("registration successful", userResponse{User: user}))
}

// Login authenticates a user by email and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login details"
// @Success      200   {object}  envelope
// @Failure      403   {object}  envelope
// @Failure      404   {object}  envelope
// @Failure      409   {object}  envelope
// @Failure      422   {object}  envelope
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:     req.Email,
		Name:      req.Name,
		AvatarURL: req.Avatar,
		TokenName: req.DeviceName,
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.Inc()
	return c.JSON(http.StatusOK, ok("login successful", loginResponse{
		User:        res.User,
		Token:       res.Token,
		AccessToken: res.SignedToken,
		TokenType:   "Bearer",
		ExpiresAt:   res.ExpiresAt,
	}))
}

// Logout revokes the token used to authenticate this request.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope
// @Failure      401  {object}  envelope
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), session); err != nil {
		return err
	}

	metrics.SessionsRevokedTotal.Inc()
	return c.JSON(http.StatusOK, ok("logged out", nil))
}

// Status reports the authenticated user and the current session.
//
// @Summary      Session status
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope
// @Failure      401  {object}  envelope
// @Failure      403  {object}  envelope
// @Router       /auth/status [get]
func (h *AuthHandler) Status(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ok("authenticated", statusResponse{
		Authenticated: true,
		User:          session.User,
		Session: sessionInfo{
			Name:       session.Token.Name,
			Abilities:  session.Token.Abilities,
			CreatedAt:  session.Token.CreatedAt,
			LastUsedAt: session.Token.LastUsedAt,
			ExpiresAt:  session.Token.ExpiresAt,
		},
	}))
}

func registrationResult(err error) string {
	switch domain.KindOf(err) {
	case domain.KindConflict:
		return "conflict"
	case domain.KindValidation:
		return "invalid"
	default:
		return "error"
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrActiveSession), errors.Is(err, domain.ErrLoginInProgress):
		return "active_session"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_registered"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
