package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

// AuthService implements registration, login, logout and profile updates.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenRepository
	issuer *TokenIssuer
	locker ports.SessionLocker
	log    zerolog.Logger
	now    func() time.Time
}

// NewAuthService wires the identity gate. locker may be nil, in which case the
// store's unique index on the token owner is the only guard against
// concurrent logins.
func NewAuthService(users ports.UserRepository, tokens ports.TokenRepository, issuer *TokenIssuer, locker ports.SessionLocker, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		locker: locker,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new identity. It never issues a token.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	name := strings.TrimSpace(in.Name)

	fields := map[string]string{}
	if name == "" {
		fields["name"] = "name is required"
	}
	if username == "" {
		fields["username"] = "username is required"
	}
	if email == "" {
		fields["email"] = "email is required"
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields)
	}

	emailTaken, usernameTaken, err := s.users.Exists(ctx, email, username)
	if err != nil {
		return nil, err
	}
	switch {
	case emailTaken:
		return nil, domain.ErrEmailTaken
	case usernameTaken:
		return nil, domain.ErrUsernameTaken
	}

	now := s.now()
	user := &domain.User{
		ID:          uuid.NewString(),
		Name:        name,
		Username:    username,
		Email:       email,
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		Preferences: domain.MergePreferences(domain.DefaultPreferences(), in.Preferences),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login authenticates by email and issues a session token. It refuses with
// *domain.ActiveSessionError when the user already holds a live token; the
// other session is never superseded silently.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, domain.NewValidationError(map[string]string{"email": "email is required"})
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now()
	refreshed := applyProfileRefresh(user, in.Name, in.AvatarURL)

	if !user.Active {
		// The refresh is kept even though the login is refused.
		if refreshed {
			user.UpdatedAt = now
			if err := s.users.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return nil, domain.ErrAccountDeactivated
	}

	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	if err := s.claimSessionSlot(ctx, user.ID, now); err != nil {
		return nil, err
	}

	issued, err := s.issuer.Issue(ctx, user, in.TokenName)
	if errors.Is(err, domain.ErrDuplicateToken) {
		// A concurrent login won the slot between our check and insert.
		return nil, s.activeSessionError(ctx, user.ID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("token_id", issued.Token.ID).Msg("session issued")

	return &ports.LoginResult{
		User:        user,
		Token:       issued.Plaintext,
		SignedToken: issued.Signed,
		ExpiresAt:   *issued.Token.ExpiresAt,
	}, nil
}

// claimSessionSlot fails when userID holds a live token and removes an
// expired leftover so the new token can take its place.
func (s *AuthService) claimSessionSlot(ctx context.Context, userID string, now time.Time) error {
	existing, err := s.tokens.FindByUser(ctx, userID)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.IsLive(now) {
		return &domain.ActiveSessionError{SessionCreatedAt: existing.CreatedAt}
	}

	s.log.Debug().Str("user_id", userID).Str("token_id", existing.ID).Msg("replacing expired session")
	return s.tokens.Delete(ctx, existing.ID)
}

func (s *AuthService) activeSessionError(ctx context.Context, userID string) error {
	existing, err := s.tokens.FindByUser(ctx, userID)
	if err != nil {
		return domain.ErrActiveSession
	}
	return &domain.ActiveSessionError{SessionCreatedAt: existing.CreatedAt}
}

// Logout deletes the token that authenticated the session. It succeeds even
// when the row is already gone.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if session == nil || session.Token == nil {
		return nil
	}
	if err := s.tokens.Delete(ctx, session.Token.ID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", session.Token.UserID).Str("token_id", session.Token.ID).Msg("session revoked")
	return nil
}

// UpdateProfile applies profile changes to the user identified by userID.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ports.ProfileUpdate) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := applyProfileRefresh(user, in.Name, in.AvatarURL)
	if len(in.Preferences) > 0 {
		user.Preferences = domain.MergePreferences(user.Preferences, in.Preferences)
		changed = true
	}
	if !changed {
		return user, nil
	}

	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) PublicProfile(ctx context.Context, username string) (*domain.User, error) {
	return s.users.FindByUsername(ctx, strings.TrimSpace(username))
}

// applyProfileRefresh copies non-empty name/avatar values onto user and
// reports whether anything changed.
func applyProfileRefresh(user *domain.User, name, avatar *string) bool {
	changed := false
	if name != nil {
		if n := strings.TrimSpace(*name); n != "" && n != user.Name {
			user.Name = n
			changed = true
		}
	}
	if avatar != nil {
		if a := strings.TrimSpace(*avatar); a != "" && a != user.AvatarURL {
			user.AvatarURL = a
			changed = true
		}
	}
	return changed
}
