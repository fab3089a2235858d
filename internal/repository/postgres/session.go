package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fnxL/favorit/internal/domain"
	apperrors "github.com/fnxL/favorit/pkg/errors"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token, device, os, browser, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.RefreshToken,
		s.Device,
		s.OS,
		s.Browser,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByRefreshToken retrieves the session currently holding the given token,
// joined with the owning user's identity.
func (r *SessionRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT s.id, s.user_id, s.refresh_token, s.device, s.os, s.browser, s.created_at,
		       u.id, u.username, u.full_name, u.email, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.refresh_token = $1`

	var s domain.Session

	err := r.db.QueryRow(ctx, query, token).Scan(
		&s.ID,
		&s.UserID,
		&s.RefreshToken,
		&s.Device,
		&s.OS,
		&s.Browser,
		&s.CreatedAt,
		&s.User.UserID,
		&s.User.Username,
		&s.User.FullName,
		&s.User.Email,
		&s.User.CreatedAt,
		&s.User.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get session by refresh token: %w", err)
	}

	return &s, nil
}

// SetRefreshToken replaces the session's current refresh token. The old value
// is overwritten unconditionally; whoever presents it next hits the
// reuse-detection path instead of this row.
func (r *SessionRepository) SetRefreshToken(ctx context.Context, sessionID, token string) error {
	query := `
		UPDATE sessions
		SET refresh_token = $1
		WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, token, sessionID)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// DeleteByRefreshToken removes the session holding the given token. Deleting
// an already-absent token is a no-op, so logout is idempotent.
func (r *SessionRepository) DeleteByRefreshToken(ctx context.Context, token string) error {
	query := `
		DELETE FROM sessions
		WHERE refresh_token = $1`

	if _, err := r.db.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("delete session by refresh token: %w", err)
	}

	return nil
}

// DeleteAllForUser removes every session owned by the user.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	query := `
		DELETE FROM sessions
		WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("delete sessions for user: %w", err)
	}

	return nil
}
