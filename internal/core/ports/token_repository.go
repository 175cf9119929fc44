package ports

import (
	"context"
	"time"

	"github.com/placequest/placequest-api/internal/core/domain"
)

// TokenRepository is the session token store. Lookups that match nothing
// return domain.ErrTokenNotFound; a second row for the same user on Create
// returns domain.ErrDuplicateToken.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.AccessToken) error
	FindByDigest(ctx context.Context, digest string) (*domain.AccessToken, error)
	FindByID(ctx context.Context, id string) (*domain.AccessToken, error)
	FindByUser(ctx context.Context, userID string) (*domain.AccessToken, error)
	Touch(ctx context.Context, id string, at time.Time) error
	// Delete removes the token row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}

// TokenToucher records token usage off the request path.
type TokenToucher interface {
	Touch(tokenID string, at time.Time)
}

// SessionLocker serialises the login critical section per user. Acquire
// returns domain.ErrLoginInProgress when another login holds the lock.
type SessionLocker interface {
	Acquire(ctx context.Context, userID string) (release func(), err error)
}
