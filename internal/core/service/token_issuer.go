package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

// tokenBytes is the entropy of an opaque token (256 bits).
const tokenBytes = 32

// IssuedToken is the result of a successful issuance. Plaintext is the only
// copy of the opaque credential and is never persisted.
type IssuedToken struct {
	Plaintext string
	Signed    string
	Token     *domain.AccessToken
}

// TokenIssuer creates session tokens. It does not check for an existing live
// token; callers hold that responsibility.
type TokenIssuer struct {
	repo          ports.TokenRepository
	ttl           time.Duration
	signingSecret []byte
	now           func() time.Time
}

// NewTokenIssuer returns an issuer with the given lifetime. When signingSecret
// is non-empty every issuance also yields an HS256 JWT bound to the token id.
func NewTokenIssuer(repo ports.TokenRepository, ttl time.Duration, signingSecret string) *TokenIssuer {
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}
	return &TokenIssuer{
		repo:          repo,
		ttl:           ttl,
		signingSecret: []byte(signingSecret),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// TTL returns the fixed session lifetime.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue persists a new token for user and returns its plaintext.
func (i *TokenIssuer) Issue(ctx context.Context, user *domain.User, name string, abilities ...string) (*IssuedToken, error) {
	if name == "" {
		name = domain.DefaultTokenName
	}
	if len(abilities) == 0 {
		abilities = []string{domain.AbilityAll}
	}

	plain, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := i.now()
	expires := now.Add(i.ttl)
	token := &domain.AccessToken{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Name:       name,
		Digest:     DigestToken(plain),
		Abilities:  abilities,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  &expires,
	}

	if err := i.repo.Create(ctx, token); err != nil {
		return nil, err
	}

	issued := &IssuedToken{Plaintext: plain, Token: token}
	if len(i.signingSecret) > 0 {
		signed, err := i.sign(token)
		if err != nil {
			return nil, err
		}
		issued.Signed = signed
	}
	return issued, nil
}

func (i *TokenIssuer) sign(token *domain.AccessToken) (string, error) {
	claims := sessionClaims{
		SessionID: token.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   token.UserID,
			IssuedAt:  jwt.NewNumericDate(token.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(*token.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// GenerateOpaqueToken returns a random base64url string with no padding.
func GenerateOpaqueToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DigestToken returns the hex BLAKE2b-256 digest under which a token is stored.
func DigestToken(plain string) string {
	sum := blake2b.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
