package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fnxL/favorit/internal/auth"
	"github.com/fnxL/favorit/internal/domain"
	"github.com/fnxL/favorit/internal/event"
	"github.com/fnxL/favorit/internal/repository"
	apperrors "github.com/fnxL/favorit/pkg/errors"
)

// SessionService implements the session and token lifecycle: login mints a
// session with a token pair, refresh rotates the session's refresh token, and
// a rotated token resurfacing is treated as account compromise.
type SessionService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	hasher   auth.PasswordHasher
	tokens   *auth.TokenManager
	producer *event.Producer
	logger   *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenManager,
	producer *event.Producer,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		producer: producer,
		logger:   logger,
	}
}

// Login verifies the credentials and, on success, creates a session with a
// fresh token pair. Unknown accounts and wrong passwords produce the same
// InvalidCredentials error.
func (s *SessionService) Login(ctx context.Context, creds domain.Credentials, device domain.DeviceInfo) (*domain.Session, *domain.TokenPair, error) {
	if creds.Login == "" || creds.Password == "" {
		return nil, nil, apperrors.InvalidInput("login and password are required")
	}

	user, err := s.lookupByCredentials(ctx, creds)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			loginAttempts.WithLabelValues(resultFailure).Inc()
			return nil, nil, apperrors.InvalidCredentials()
		}
		return nil, nil, apperrors.StoreUnavailable(err)
	}

	if !s.hasher.Verify(user.PasswordHash, creds.Password) {
		loginAttempts.WithLabelValues(resultFailure).Inc()
		return nil, nil, apperrors.InvalidCredentials()
	}

	identity := user.Identity()
	session := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Device:    device.Device,
		OS:        device.OS,
		Browser:   device.Browser,
		CreatedAt: time.Now().UTC(),
		User:      identity,
	}

	// First mint and rotation share one path: the session row always holds
	// whatever token was signed last.
	refreshToken, err := s.tokens.SignRefreshToken(session.ID, identity)
	if err != nil {
		return nil, nil, fmt.Errorf("sign refresh token: %w", err)
	}
	session.RefreshToken = refreshToken

	accessToken, err := s.tokens.SignAccessToken(identity)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, apperrors.StoreUnavailable(err)
	}

	loginAttempts.WithLabelValues(resultSuccess).Inc()
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)

	return session, &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new token pair, rotating the
// session's stored token. A token that no longer matches any session runs the
// reuse-detection protocol instead.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidToken()
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, s.handleTokenReuse(ctx, refreshToken)
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	// The token is the session's current value; the signature check decides
	// between rotation and ending a stale session.
	if _, err := s.tokens.VerifyRefreshToken(refreshToken); err != nil {
		if err := s.sessions.DeleteByRefreshToken(ctx, refreshToken); err != nil {
			return nil, apperrors.StoreUnavailable(err)
		}
		s.logger.InfoContext(ctx, "stale session destroyed on expired refresh token",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID),
		)
		return nil, apperrors.InvalidToken()
	}

	newRefreshToken, err := s.tokens.SignRefreshToken(session.ID, session.User)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	accessToken, err := s.tokens.SignAccessToken(session.User)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	if err := s.sessions.SetRefreshToken(ctx, session.ID, newRefreshToken); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Session vanished between lookup and rotation (logout race).
			return nil, apperrors.InvalidToken()
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	tokenRotations.Inc()
	s.logger.DebugContext(ctx, "refresh token rotated",
		slog.String("session_id", session.ID),
		slog.String("user_id", session.UserID),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// handleTokenReuse runs when a presented refresh token matches no session.
// A verifiable token naming a real account is a confirmed compromise: the
// token was rotated away and a stale copy resurfaced, so every session for
// that account is revoked before the uniform InvalidToken error is returned.
// An unverifiable token proves nothing and causes no side effects.
func (s *SessionService) handleTokenReuse(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.logger.InfoContext(ctx, "unknown refresh token rejected")
		return apperrors.InvalidToken()
	}

	if _, err := s.users.GetByID(ctx, claims.User.UserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "reuse signal for unknown account",
				slog.String("claimed_user_id", claims.User.UserID),
			)
			return apperrors.InvalidToken()
		}
		return apperrors.StoreUnavailable(err)
	}

	// Revocation is awaited before the error is returned, so a racing
	// legitimate refresh cannot slip in behind the detection.
	if err := s.sessions.DeleteAllForUser(ctx, claims.User.UserID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	tokenReuseDetections.Inc()
	sessionsRevoked.WithLabelValues(event.ReasonReuseDetected).Inc()
	s.logger.WarnContext(ctx, "refresh token reuse detected, all sessions revoked",
		slog.String("user_id", claims.User.UserID),
		slog.String("session_id", claims.SessionID),
	)

	if err := s.producer.PublishTokenReuseDetected(ctx, claims.User.UserID, claims.SessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish token.reuse_detected event",
			slog.String("user_id", claims.User.UserID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishSessionsRevoked(ctx, claims.User.UserID, event.ReasonReuseDetected); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sessions.revoked event",
			slog.String("user_id", claims.User.UserID),
			slog.String("error", err.Error()),
		)
	}

	return apperrors.InvalidToken()
}

// Logout destroys the session holding the given refresh token. Tokens that
// match nothing are ignored: logging out with an expired or already-consumed
// token must succeed.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.sessions.DeleteByRefreshToken(ctx, refreshToken); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	s.logger.DebugContext(ctx, "session logged out")
	return nil
}

// LogoutAll destroys every session owned by the user.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return apperrors.StoreUnavailable(err)
	}

	sessionsRevoked.WithLabelValues(event.ReasonLogoutAll).Inc()
	s.logger.InfoContext(ctx, "all sessions revoked",
		slog.String("user_id", userID),
	)

	if err := s.producer.PublishSessionsRevoked(ctx, userID, event.ReasonLogoutAll); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sessions.revoked event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// GetSession returns the session currently holding the given refresh token,
// without rotating or otherwise mutating it.
func (s *SessionService) GetSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidToken()
		}
		return nil, apperrors.StoreUnavailable(err)
	}
	return session, nil
}

func (s *SessionService) lookupByCredentials(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	switch creds.Kind {
	case domain.ByEmail:
		return s.users.GetByEmail(ctx, creds.Login)
	default:
		return s.users.GetByUsername(ctx, creds.Login)
	}
}
