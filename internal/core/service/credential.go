package service

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/placequest/placequest-api/internal/core/domain"
	"github.com/placequest/placequest-api/internal/core/ports"
)

// CredentialVerifier resolves a raw bearer credential to its stored token.
// Verify returns domain.ErrTokenInvalid when it does not recognise the credential.
type CredentialVerifier interface {
	Verify(ctx context.Context, raw string) (*domain.AccessToken, error)
}

// sessionClaims is the payload of the signed credential variant.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// StoreVerifier looks the opaque credential up by its digest.
type StoreVerifier struct {
	tokens ports.TokenRepository
}

func NewStoreVerifier(tokens ports.TokenRepository) *StoreVerifier {
	return &StoreVerifier{tokens: tokens}
}

func (v *StoreVerifier) Verify(ctx context.Context, raw string) (*domain.AccessToken, error) {
	token, err := v.tokens.FindByDigest(ctx, DigestToken(raw))
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil, domain.ErrTokenInvalid
	}
	return token, err
}

// SignedVerifier accepts HS256 JWTs minted alongside an opaque token. Its
// claims only name the session; the stored row stays authoritative for
// expiry and revocation, so the JWT's own exp is not enforced here.
type SignedVerifier struct {
	tokens ports.TokenRepository
	secret []byte
}

func NewSignedVerifier(tokens ports.TokenRepository, secret string) *SignedVerifier {
	return &SignedVerifier{tokens: tokens, secret: []byte(secret)}
}

func (v *SignedVerifier) Verify(ctx context.Context, raw string) (*domain.AccessToken, error) {
	if len(v.secret) == 0 || strings.Count(raw, ".") != 2 {
		return nil, domain.ErrTokenInvalid
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil || claims.SessionID == "" {
		return nil, domain.ErrTokenInvalid
	}

	token, err := v.tokens.FindByID(ctx, claims.SessionID)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if token.UserID != claims.Subject {
		return nil, domain.ErrSessionNotOwned
	}
	return token, nil
}
