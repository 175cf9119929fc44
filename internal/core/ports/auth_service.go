package ports

import (
	"context"
	"time"

	"github.com/placequest/placequest-api/internal/core/domain"
)

// RegisterInput carries the profile fields of a new user.
type RegisterInput struct {
	Name        string
	Username    string
	Email       string
	AvatarURL   string
	Preferences domain.Preferences
}

// LoginInput identifies the user by email; Name and AvatarURL, when set,
// refresh the stored profile.
type LoginInput struct {
	Email     string
	Name      *string
	AvatarURL *string
	TokenName string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User        *domain.User
	Token       string
	SignedToken string // empty unless a signing secret is configured
	ExpiresAt   time.Time
}

// ProfileUpdate carries optional profile changes. Preferences are merged.
type ProfileUpdate struct {
	Name        *string
	AvatarURL   *string
	Preferences domain.Preferences
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, session *domain.Session) error
	UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*domain.User, error)
	PublicProfile(ctx context.Context, username string) (*domain.User, error)
}

// SessionValidator resolves a raw bearer credential to a session.
type SessionValidator interface {
	Authenticate(ctx context.Context, rawToken string) (*domain.Session, error)
}
