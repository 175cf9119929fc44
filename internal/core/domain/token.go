package domain

import (
	"slices"
	"time"
)

const (
	// DefaultTokenName labels tokens issued by the login flow.
	DefaultTokenName = "auth_token"
	// AbilityAll grants every ability.
	AbilityAll = "*"
	// DefaultSessionTTL is the fixed lifetime of a session token.
	DefaultSessionTTL = 24 * time.Hour
)

// AccessToken is a persisted session token. Only the digest of the opaque
// string is stored; the plaintext is handed to the client once.
type AccessToken struct {
	ID         string
	UserID     string
	Name       string
	Digest     string
	Abilities  []string
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  *time.Time
}

// IsLive reports whether the token is still usable at now.
func (t *AccessToken) IsLive(now time.Time) bool {
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}

// Can reports whether the token grants ability.
func (t *AccessToken) Can(ability string) bool {
	return slices.Contains(t.Abilities, AbilityAll) || slices.Contains(t.Abilities, ability)
}

// Session is the resolved identity attached to an authenticated request.
type Session struct {
	User     *User
	Token    *AccessToken
	RawToken string
}
