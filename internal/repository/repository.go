package repository

import (
	"context"

	"github.com/fnxL/favorit/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by their username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SessionRepository defines the interface for session persistence operations.
// All operations are safe to retry: creation is keyed by a caller-supplied id,
// rotation overwrites unconditionally, and deletes are no-ops when the target
// is already gone.
type SessionRepository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, session *domain.Session) error

	// GetByRefreshToken retrieves the session whose current refresh token
	// equals the given value, with the owning user's identity embedded.
	// Returns apperrors.ErrNotFound when no session holds the token.
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)

	// SetRefreshToken replaces the session's current refresh token,
	// unconditionally overwriting the prior value. This is rotation.
	SetRefreshToken(ctx context.Context, sessionID, token string) error

	// DeleteByRefreshToken removes the session holding the given token.
	// No-op when absent.
	DeleteByRefreshToken(ctx context.Context, token string) error

	// DeleteAllForUser removes every session owned by the user.
	DeleteAllForUser(ctx context.Context, userID string) error
}
