package ports

import (
	"context"

	"github.com/placequest/placequest-api/internal/core/domain"
)

// UserRepository defines persistence operations for user identities.
// Email arguments are expected in normalized (case-folded) form.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Exists reports which of email and username are already in use.
	Exists(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	Update(ctx context.Context, user *domain.User) error
}
