package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

// ProfileHandler serves the caller's own profile and public user profiles.
type ProfileHandler struct {
	authService ports.AuthService
}

func NewProfileHandler(authService ports.AuthService) *ProfileHandler {
	return &ProfileHandler{authService: authService}
}

type updateProfileRequest struct {
	Name        *string        `json:"name" validate:"omitempty,min=1,max=100"`
	Avatar      *string        `json:"avatar" validate:"omitempty,url"`
	Preferences map[string]any `json:"preferences"`
}

type publicProfileResponse struct {
	Profile domain.PublicProfile `json:"profile"`
	IsSelf  bool                 `json:"isSelf"`
}

// Me returns the authenticated user's profile.
//
// @Summary      Current user profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope
// @Failure      401  {object}  envelope
// @Router       /auth/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("profile", userResponse{User: session.User}))
}

// UpdateMe changes the authenticated user's name, avatar or preferences.
//
// @Summary      Update current user profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile changes"
// @Success      200   {object}  envelope
// @Failure      401   {object}  envelope
// @Failure      422   {object}  envelope
// @Router       /auth/me [patch]
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.UpdateProfile(c.Request().Context(), session.User.ID, ports.ProfileUpdate{
		Name:        req.Name,
		AvatarURL:   req.Avatar,
		Preferences: req.Preferences,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("profile updated", userResponse{User: user}))
}

// PublicProfile returns another user's public profile. Authentication is
// optional; when present the response says whether the caller is that user.
//
// @Summary      Public user profile
// @Tags         profile
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  envelope
// @Failure      404       {object}  envelope
// @Router       /users/{username} [get]
func (h *ProfileHandler) PublicProfile(c echo.Context) error {
	user, err := h.authService.PublicProfile(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}

	resp := publicProfileResponse{Profile: user.PublicProfile()}
	if session := optionalSession(c); session != nil {
		resp.IsSelf = session.User.ID == user.ID
	}
	return c.JSON(http.StatusOK, ok("profile", resp))
}
