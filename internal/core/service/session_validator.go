package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

// SessionValidator resolves bearer credentials into sessions. Verifiers are
// tried in order; the first one that recognises the credential wins.
type SessionValidator struct {
	verifiers []CredentialVerifier
	users     ports.UserRepository
	toucher   ports.TokenToucher
	log       zerolog.Logger
	now       func() time.Time
}

func NewSessionValidator(users ports.UserRepository, toucher ports.TokenToucher, log zerolog.Logger, verifiers ...CredentialVerifier) *SessionValidator {
	return &SessionValidator{
		verifiers: verifiers,
		users:     users,
		toucher:   toucher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate checks, in order: the credential is known, its owner exists,
// it has not expired, and the owner is active. An expired token is left in
// the store. Last-used is recorded once the token is known to be live.
func (v *SessionValidator) Authenticate(ctx context.Context, raw string) (*domain.Session, error) {
	if raw == "" {
		return nil, domain.ErrTokenMissing
	}

	token, err := v.resolve(ctx, raw)
	if err != nil {
		return nil, err
	}

	user, err := v.users.FindByID(ctx, token.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		v.log.Warn().Str("token_id", token.ID).Str("user_id", token.UserID).Msg("token owner missing")
		return nil, domain.ErrTokenOwnerMissing
	}
	if err != nil {
		return nil, err
	}

	now := v.now()
	if !token.IsLive(now) {
		return nil, domain.ErrTokenExpired
	}

	if v.toucher != nil {
		v.toucher.Touch(token.ID, now)
	}
	token.LastUsedAt = now

	if !user.Active {
		return nil, domain.ErrAccountDeactivated
	}

	return &domain.Session{User: user, Token: token, RawToken: raw}, nil
}

func (v *SessionValidator) resolve(ctx context.Context, raw string) (*domain.AccessToken, error) {
	for _, verifier := range v.verifiers {
		token, err := verifier.Verify(ctx, raw)
		if errors.Is(err, domain.ErrTokenInvalid) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return token, nil
	}
	return nil, domain.ErrTokenInvalid
}
