package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fnxL/favorit/internal/domain"
)

func testIdentity() domain.Identity {
	now := time.Now().UTC()
	return domain.Identity{
		UserID:    "u-1",
		Username:  "alice",
		FullName:  "Alice Smith",
		Email:     "alice@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestManager()
	id := testIdentity()

	token, err := m.SignAccessToken(id)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, claims.UserID)
	assert.Equal(t, id.Username, claims.Username)
	assert.Equal(t, id.Email, claims.Email)
	assert.Equal(t, id.UserID, claims.Subject)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	m := newTestManager()
	id := testIdentity()

	token, err := m.SignRefreshToken("s-1", id)
	require.NoError(t, err)

	claims, err := m.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s-1", claims.SessionID)
	assert.Equal(t, id.UserID, claims.User.UserID)
	assert.Equal(t, id.Username, claims.User.Username)
}

func TestTokenKinds_UseIndependentSecrets(t *testing.T) {
	m := newTestManager()
	id := testIdentity()

	access, err := m.SignAccessToken(id)
	require.NoError(t, err)
	refresh, err := m.SignRefreshToken("s-1", id)
	require.NoError(t, err)

	// A refresh token never verifies as an access token, and vice versa.
	_, err = m.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = m.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_ForeignSignedToken(t *testing.T) {
	m := newTestManager()
	foreign := NewTokenManager("other-access", "other-refresh", 15*time.Minute, 24*time.Hour)

	token, err := foreign.SignRefreshToken("s-1", testIdentity())
	require.NoError(t, err)

	_, err = m.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_ExpiredToken(t *testing.T) {
	expired := NewTokenManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	m := newTestManager()

	token, err := expired.SignRefreshToken("s-1", testIdentity())
	require.NoError(t, err)

	// Expired and malformed tokens fail with the same error.
	_, errExpired := m.VerifyRefreshToken(token)
	_, errMalformed := m.VerifyRefreshToken("not-a-token")
	assert.ErrorIs(t, errExpired, ErrTokenInvalid)
	assert.ErrorIs(t, errMalformed, ErrTokenInvalid)
	assert.Equal(t, errExpired, errMalformed)
}

func TestVerify_MalformedToken(t *testing.T) {
	m := newTestManager()

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := m.VerifyRefreshToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", token)
	}
}

func TestRefreshTTL(t *testing.T) {
	m := newTestManager()
	assert.Equal(t, 24*time.Hour, m.RefreshTTL())
}
