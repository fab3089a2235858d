package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fnxL/favorit/internal/domain"
	apperrors "github.com/fnxL/favorit/pkg/errors"
)

const (
	sessionKeyPrefix = "session:"
	refreshKeyPrefix = "refresh:"
	userSetKeyPrefix = "user_sessions:"
)

// sessionRecord is the stored shape of a session. domain.Session hides the
// refresh token from JSON, so persistence uses its own struct.
type sessionRecord struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	RefreshToken string          `json:"refresh_token"`
	Device       string          `json:"device,omitempty"`
	OS           string          `json:"os,omitempty"`
	Browser      string          `json:"browser,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	User         domain.Identity `json:"user"`
}

func (rec *sessionRecord) toDomain() *domain.Session {
	return &domain.Session{
		ID:           rec.ID,
		UserID:       rec.UserID,
		RefreshToken: rec.RefreshToken,
		Device:       rec.Device,
		OS:           rec.OS,
		Browser:      rec.Browser,
		CreatedAt:    rec.CreatedAt,
		User:         rec.User,
	}
}

// SessionRepository implements repository.SessionRepository using Redis.
// Each session is stored under session:{id}, with refresh:{token} pointing at
// the owning session id and user_sessions:{userID} holding the user's session
// ids. All keys expire after the refresh token lifetime, so abandoned
// sessions clean themselves up.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a new Redis-backed session repository. The TTL
// should match the refresh token lifetime.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// Create persists a new session and indexes its refresh token.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	rec := &sessionRecord{
		ID:           s.ID,
		UserID:       s.UserID,
		RefreshToken: s.RefreshToken,
		Device:       s.Device,
		OS:           s.OS,
		Browser:      s.Browser,
		CreatedAt:    s.CreatedAt,
		User:         s.User,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl)
	pipe.Set(ctx, refreshKeyPrefix+s.RefreshToken, s.ID, r.ttl)
	pipe.SAdd(ctx, userSetKeyPrefix+s.UserID, s.ID)
	pipe.Expire(ctx, userSetKeyPrefix+s.UserID, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}

	return nil
}

// GetByRefreshToken resolves the token index and loads the session.
func (r *SessionRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	rec, err := r.loadByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// SetRefreshToken swaps the session's refresh token, re-pointing the token
// index at the new value. The old token stops resolving immediately.
func (r *SessionRepository) SetRefreshToken(ctx context.Context, sessionID, token string) error {
	rec, err := r.load(ctx, sessionID)
	if err != nil {
		return err
	}

	oldToken := rec.RefreshToken
	rec.RefreshToken = token

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, refreshKeyPrefix+oldToken)
	pipe.Set(ctx, sessionKeyPrefix+sessionID, data, r.ttl)
	pipe.Set(ctx, refreshKeyPrefix+token, sessionID, r.ttl)
	// The user set must outlive every session it tracks, so rotation renews
	// its membership and lifetime along with the session keys.
	pipe.SAdd(ctx, userSetKeyPrefix+rec.UserID, sessionID)
	pipe.Expire(ctx, userSetKeyPrefix+rec.UserID, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis rotate refresh token: %w", err)
	}

	return nil
}

// DeleteByRefreshToken removes the session holding the token. Unknown tokens
// are a no-op.
func (r *SessionRepository) DeleteByRefreshToken(ctx context.Context, token string) error {
	rec, err := r.loadByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+rec.ID)
	pipe.Del(ctx, refreshKeyPrefix+rec.RefreshToken)
	pipe.SRem(ctx, userSetKeyPrefix+rec.UserID, rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}

	return nil
}

// DeleteAllForUser removes every session owned by the user.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	setKey := userSetKeyPrefix + userID

	ids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("redis list user sessions: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		// Expired session keys leave dangling set members; load failures
		// other than absence still abort.
		rec, err := r.load(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return err
		}
		pipe.Del(ctx, sessionKeyPrefix+rec.ID)
		pipe.Del(ctx, refreshKeyPrefix+rec.RefreshToken)
	}
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete user sessions: %w", err)
	}

	return nil
}

func (r *SessionRepository) load(ctx context.Context, sessionID string) (*sessionRecord, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &rec, nil
}

func (r *SessionRepository) loadByToken(ctx context.Context, token string) (*sessionRecord, error) {
	id, err := r.client.Get(ctx, refreshKeyPrefix+token).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis resolve refresh token: %w", err)
	}

	return r.load(ctx, id)
}
