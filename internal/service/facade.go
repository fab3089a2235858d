package service

import (
	"context"

	"github.com/fnxL/favorit/internal/domain"
)

// AuthFacade is the narrow boundary the transport layer depends on. It holds
// no business logic; every call passes straight through to the session
// service.
type AuthFacade struct {
	sessions *SessionService
}

// NewAuthFacade creates the facade over the session service.
func NewAuthFacade(sessions *SessionService) *AuthFacade {
	return &AuthFacade{sessions: sessions}
}

// Login authenticates the credentials and opens a session.
func (f *AuthFacade) Login(ctx context.Context, creds domain.Credentials, device domain.DeviceInfo) (*domain.Session, *domain.TokenPair, error) {
	return f.sessions.Login(ctx, creds, device)
}

// Refresh rotates a refresh token into a new token pair.
func (f *AuthFacade) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	return f.sessions.Refresh(ctx, refreshToken)
}

// Logout ends the session holding the refresh token.
func (f *AuthFacade) Logout(ctx context.Context, refreshToken string) error {
	return f.sessions.Logout(ctx, refreshToken)
}

// LogoutAll ends every session owned by the user.
func (f *AuthFacade) LogoutAll(ctx context.Context, userID string) error {
	return f.sessions.LogoutAll(ctx, userID)
}

// GetSession returns the session holding the refresh token without rotating it.
func (f *AuthFacade) GetSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return f.sessions.GetSession(ctx, refreshToken)
}
