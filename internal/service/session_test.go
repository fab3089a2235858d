package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fnxL/favorit/internal/auth"
	"github.com/fnxL/favorit/internal/domain"
	"github.com/fnxL/favorit/internal/event"
	apperrors "github.com/fnxL/favorit/pkg/errors"
	pkgkafka "github.com/fnxL/favorit/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Mock Session Repository ---

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepository) SetRefreshToken(ctx context.Context, sessionID, token string) error {
	args := m.Called(ctx, sessionID, token)
	return args.Error(0)
}

func (m *mockSessionRepository) DeleteByRefreshToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockSessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("access-secret-for-testing", "refresh-secret-for-testing", 15*time.Minute, 7*24*time.Hour)
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func newTestSessionService(users *mockUserRepository, sessions *mockSessionRepository) *SessionService {
	return NewSessionService(users, sessions, auth.NewBcryptHasher(), newTestTokenManager(), newTestEventProducer(), newTestLogger())
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func testUser() *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:           "u-1",
		Username:     "alice",
		FullName:     "Alice Smith",
		Email:        "alice@example.com",
		PasswordHash: hashForTest("CorrectHorse1"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// --- Login Tests ---

func TestLogin_SuccessByUsername(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	user := testUser()
	users.On("GetByUsername", ctx, "alice").Return(user, nil)
	sessions.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(nil)

	session, pair, err := svc.Login(ctx, domain.UsernameCredentials("alice", "CorrectHorse1"), domain.DeviceInfo{Device: "mobile", OS: "iOS", Browser: "Safari"})

	require.NoError(t, err)
	require.NotNil(t, session)
	require.NotNil(t, pair)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "mobile", session.Device)
	assert.Equal(t, pair.RefreshToken, session.RefreshToken)
	assert.NotEmpty(t, pair.AccessToken)

	// The minted refresh token is bound to the new session.
	claims, err := newTestTokenManager().VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.ID, claims.SessionID)
	assert.Equal(t, user.ID, claims.User.UserID)

	users.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestLogin_SuccessByEmail(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	users.On("GetByEmail", ctx, "alice@example.com").Return(testUser(), nil)
	sessions.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(nil)

	_, pair, err := svc.Login(ctx, domain.EmailCredentials("alice@example.com", "CorrectHorse1"), domain.DeviceInfo{})

	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	users.AssertExpectations(t)
	users.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

func TestLogin_UnknownUserAndWrongPasswordAreIndistinguishable(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	users.On("GetByUsername", ctx, "nobody").Return(nil, apperrors.ErrNotFound)
	users.On("GetByUsername", ctx, "alice").Return(testUser(), nil)

	_, _, errUnknown := svc.Login(ctx, domain.UsernameCredentials("nobody", "whatever1"), domain.DeviceInfo{})
	_, _, errWrongPw := svc.Login(ctx, domain.UsernameCredentials("alice", "WrongPass1"), domain.DeviceInfo{})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.True(t, errors.Is(errUnknown, apperrors.ErrInvalidCredentials))
	assert.True(t, errors.Is(errWrongPw, apperrors.ErrInvalidCredentials))

	var appErrUnknown, appErrWrongPw *apperrors.AppError
	require.True(t, errors.As(errUnknown, &appErrUnknown))
	require.True(t, errors.As(errWrongPw, &appErrWrongPw))
	assert.Equal(t, appErrUnknown.Code, appErrWrongPw.Code)
	assert.Equal(t, appErrUnknown.Message, appErrWrongPw.Message)

	// No session row is created on a failed login.
	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin_StoreUnavailable(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	users.On("GetByUsername", ctx, "alice").Return(nil, errors.New("connection refused"))

	_, _, err := svc.Login(ctx, domain.UsernameCredentials("alice", "CorrectHorse1"), domain.DeviceInfo{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
}

// --- Refresh Tests ---

func TestRefresh_RotatesCurrentToken(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	user := testUser()
	tm := newTestTokenManager()
	current, err := tm.SignRefreshToken("s-1", user.Identity())
	require.NoError(t, err)

	session := &domain.Session{
		ID:           "s-1",
		UserID:       user.ID,
		RefreshToken: current,
		CreatedAt:    time.Now().UTC(),
		User:         user.Identity(),
	}

	sessions.On("GetByRefreshToken", ctx, current).Return(session, nil)
	sessions.On("SetRefreshToken", ctx, "s-1", mock.AnythingOfType("string")).Return(nil)

	pair, err := svc.Refresh(ctx, current)

	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.NotEqual(t, current, pair.RefreshToken, "rotation must mint a distinct token")
	assert.NotEmpty(t, pair.AccessToken)

	claims, err := tm.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "s-1", claims.SessionID)

	sessions.AssertExpectations(t)
}

func TestRefresh_ReuseOfRotatedTokenRevokesAllSessions(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	user := testUser()
	stale, err := newTestTokenManager().SignRefreshToken("s-1", user.Identity())
	require.NoError(t, err)

	sessions.On("GetByRefreshToken", ctx, stale).Return(nil, apperrors.ErrNotFound)
	users.On("GetByID", ctx, user.ID).Return(user, nil)
	sessions.On("DeleteAllForUser", ctx, user.ID).Return(nil)

	pair, err := svc.Refresh(ctx, stale)

	assert.Nil(t, pair)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
	sessions.AssertCalled(t, "DeleteAllForUser", ctx, user.ID)
}

func TestRefresh_MalformedTokenHasNoSideEffects(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	sessions.On("GetByRefreshToken", ctx, "not-a-jwt").Return(nil, apperrors.ErrNotFound)

	pair, err := svc.Refresh(ctx, "not-a-jwt")

	assert.Nil(t, pair)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
	sessions.AssertNotCalled(t, "DeleteAllForUser", mock.Anything, mock.Anything)
	sessions.AssertNotCalled(t, "DeleteByRefreshToken", mock.Anything, mock.Anything)
}

func TestRefresh_ForeignSignedTokenHasNoSideEffects(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	foreign := auth.NewTokenManager("other-access-secret", "other-refresh-secret", time.Minute, time.Hour)
	token, err := foreign.SignRefreshToken("s-1", testUser().Identity())
	require.NoError(t, err)

	sessions.On("GetByRefreshToken", ctx, token).Return(nil, apperrors.ErrNotFound)

	pair, err := svc.Refresh(ctx, token)

	assert.Nil(t, pair)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
	sessions.AssertNotCalled(t, "DeleteAllForUser", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRefresh_ReuseSignalForUnknownAccountHasNoSideEffects(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	user := testUser()
	stale, err := newTestTokenManager().SignRefreshToken("s-1", user.Identity())
	require.NoError(t, err)

	sessions.On("GetByRefreshToken", ctx, stale).Return(nil, apperrors.ErrNotFound)
	users.On("GetByID", ctx, user.ID).Return(nil, apperrors.ErrNotFound)

	pair, err := svc.Refresh(ctx, stale)

	assert.Nil(t, pair)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
	sessions.AssertNotCalled(t, "DeleteAllForUser", mock.Anything, mock.Anything)
}

func TestRefresh_ExpiredButCurrentTokenDestroysSession(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	user := testUser()
	// Signed with a negative TTL so the token is already expired, yet it is
	// still the session's current value.
	expiredSigner := auth.NewTokenManager("access-secret-for-testing", "refresh-secret-for-testing", time.Minute, -time.Minute)
	expired, err := expiredSigner.SignRefreshToken("s-1", user.Identity())
	require.NoError(t, err)

	session := &domain.Session{
		ID:           "s-1",
		UserID:       user.ID,
		RefreshToken: expired,
		CreatedAt:    time.Now().UTC(),
		User:         user.Identity(),
	}

	sessions.On("GetByRefreshToken", ctx, expired).Return(session, nil)
	sessions.On("DeleteByRefreshToken", ctx, expired).Return(nil)

	pair, err := svc.Refresh(ctx, expired)

	assert.Nil(t, pair)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
	sessions.AssertCalled(t, "DeleteByRefreshToken", ctx, expired)
	sessions.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
	sessions.AssertNotCalled(t, "DeleteAllForUser", mock.Anything, mock.Anything)
}

func TestRefresh_StoreUnavailable(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	sessions.On("GetByRefreshToken", ctx, "any-token").Return(nil, errors.New("connection refused"))

	pair, err := svc.Refresh(ctx, "any-token")

	assert.Nil(t, pair)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
}

// --- Logout Tests ---

func TestLogout_AbsentTokenIsNoop(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	sessions.On("DeleteByRefreshToken", ctx, "gone-token").Return(nil)

	assert.NoError(t, svc.Logout(ctx, "gone-token"))
}

func TestLogout_EmptyTokenIsNoop(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)

	assert.NoError(t, svc.Logout(context.Background(), ""))
	sessions.AssertNotCalled(t, "DeleteByRefreshToken", mock.Anything, mock.Anything)
}

func TestLogout_StoreUnavailable(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	sessions.On("DeleteByRefreshToken", ctx, "token").Return(errors.New("connection refused"))

	err := svc.Logout(ctx, "token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
}

// --- LogoutAll Tests ---

func TestLogoutAll_RevokesEverySession(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	sessions.On("DeleteAllForUser", ctx, "u-1").Return(nil)

	assert.NoError(t, svc.LogoutAll(ctx, "u-1"))
	sessions.AssertExpectations(t)
}

// --- Rotation Scenario ---

// inMemorySessionRepo is a minimal real store for end-to-end lifecycle tests.
type inMemorySessionRepo struct {
	mu       sync.Mutex
	byToken  map[string]*domain.Session
	sessions map[string]*domain.Session
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{
		byToken:  make(map[string]*domain.Session),
		sessions: make(map[string]*domain.Session),
	}
}

func (r *inMemorySessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	r.byToken[s.RefreshToken] = &cp
	return nil
}

func (r *inMemorySessionRepo) GetByRefreshToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySessionRepo) SetRefreshToken(_ context.Context, sessionID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	delete(r.byToken, s.RefreshToken)
	s.RefreshToken = token
	r.byToken[token] = s
	return nil
}

func (r *inMemorySessionRepo) DeleteByRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byToken[token]; ok {
		delete(r.sessions, s.ID)
		delete(r.byToken, token)
	}
	return nil
}

func (r *inMemorySessionRepo) DeleteAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.byToken, s.RefreshToken)
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *inMemorySessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func TestScenario_RotationThenReuseRevokesEverything(t *testing.T) {
	users := new(mockUserRepository)
	store := newInMemorySessionRepo()
	svc := NewSessionService(users, store, auth.NewBcryptHasher(), newTestTokenManager(), newTestEventProducer(), newTestLogger())
	ctx := context.Background()

	user := testUser()
	users.On("GetByUsername", ctx, "alice").Return(user, nil)
	users.On("GetByID", ctx, user.ID).Return(user, nil)

	// Alice logs in on two devices.
	_, pair, err := svc.Login(ctx, domain.UsernameCredentials("alice", "CorrectHorse1"), domain.DeviceInfo{Device: "laptop"})
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, domain.UsernameCredentials("alice", "CorrectHorse1"), domain.DeviceInfo{Device: "phone"})
	require.NoError(t, err)
	require.Equal(t, 2, store.count())

	original := pair.RefreshToken

	// First refresh succeeds and rotates.
	rotated, err := svc.Refresh(ctx, original)
	require.NoError(t, err)
	assert.NotEqual(t, original, rotated.RefreshToken)

	// Replaying the consumed token is a confirmed compromise: every session
	// goes, including the one just rotated and the other device's.
	pair2, err := svc.Refresh(ctx, original)
	assert.Nil(t, pair2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
	assert.Equal(t, 0, store.count())

	// The rotated token is now unusable too, but since its signer's account
	// still exists the revocation path simply finds nothing left to revoke.
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}

// --- GetSession Tests ---

func TestGetSession_ReturnsWithoutRotating(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	session := &domain.Session{ID: "s-1", UserID: "u-1", RefreshToken: "token-a"}
	sessions.On("GetByRefreshToken", ctx, "token-a").Return(session, nil)

	got, err := svc.GetSession(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	sessions.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSession_UnknownToken(t *testing.T) {
	users := new(mockUserRepository)
	sessions := new(mockSessionRepository)
	svc := newTestSessionService(users, sessions)
	ctx := context.Background()

	sessions.On("GetByRefreshToken", ctx, "token-gone").Return(nil, apperrors.ErrNotFound)

	got, err := svc.GetSession(ctx, "token-gone")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}
