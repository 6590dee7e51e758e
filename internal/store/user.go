package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. The user must already carry a
	// hashed password. Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetSummaries retrieves the {id, name, email} projections for the given
	// user IDs. Missing IDs are silently omitted from the result.
	GetSummaries(ctx context.Context, ids []uuid.UUID) ([]domain.UserSummary, error)

	// Search performs a case-insensitive partial match on name and email,
	// returning at most limit summaries.
	Search(ctx context.Context, query string, limit int) ([]domain.UserSummary, error)
}
