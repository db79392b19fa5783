package session

import (
	"context"
	"testing"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, role, sessionID string) (string, error) {
	args := m.Called(userID, role, sessionID)
	return args.String(0), args.Error(1)
}
func (m *mockSigner) Expiry() time.Duration { return 15 * time.Minute }

// --- helpers ---

func newSvc(us *mockUserStore, ss *mockSessionStore, signer *mockSigner) Service {
	return NewService(ServiceDeps{
		SessionRepo:     ss,
		UserRepo:        us,
		JWTProvider:     signer,
		RefreshTokenDur: 24 * time.Hour,
	})
}

func testUser() *domain.User {
	return &domain.User{UserID: "user-1", Nickname: "alice", Role: domain.RoleUser, Enable: true}
}

// --- tests ---

func TestOpenIssuesCompletePair(t *testing.T) {
	us, ss, signer := &mockUserStore{}, &mockSessionStore{}, &mockSigner{}
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	signer.On("Sign", "user-1", domain.RoleUser, mock.Anything).Return("bearer-1", nil)

	pair, sess, err := newSvc(us, ss, signer).Open(context.Background(), testUser())
	require.NoError(t, err)
	assert.True(t, pair.Complete())
	assert.Equal(t, "bearer-1", pair.AccessToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.True(t, sess.Enable)
	assert.Equal(t, "user-1", sess.UserID)
	require.NotNil(t, sess.User)
}

func TestOpenNoPairOnSignFailure(t *testing.T) {
	us, ss, signer := &mockUserStore{}, &mockSessionStore{}, &mockSigner{}
	ss.On("Put", mock.Anything, mock.Anything).Return(nil)
	ss.On("Update", mock.Anything, mock.Anything, map[string]interface{}{"enable": false}).Return(nil)
	signer.On("Sign", mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError)

	pair, sess, err := newSvc(us, ss, signer).Open(context.Background(), testUser())
	require.Error(t, err)
	assert.Nil(t, pair)
	assert.Nil(t, sess)

	// the stored session is disabled so its refresh token cannot be used
	ss.AssertCalled(t, "Update", mock.Anything, mock.Anything, map[string]interface{}{"enable": false})
}

func TestGetCurrentDisabledSession(t *testing.T) {
	us, ss, signer := &mockUserStore{}, &mockSessionStore{}, &mockSigner{}
	ss.On("Get", mock.Anything, "sess-1").Return(&domain.Session{SessionID: "sess-1", Enable: false}, nil)

	_, err := newSvc(us, ss, signer).GetCurrent(context.Background(), "sess-1")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestRefreshRotatesToken(t *testing.T) {
	us, ss, signer := &mockUserStore{}, &mockSessionStore{}, &mockSigner{}
	ss.On("GetByRefreshToken", mock.Anything, "old-token").Return(&domain.Session{
		SessionID:        "sess-1",
		UserID:           "user-1",
		Enable:           true,
		RefreshToken:     "old-token",
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	ss.On("RotateRefreshToken", mock.Anything, "sess-1", mock.Anything, mock.Anything).Return(nil)
	us.On("Get", mock.Anything, "user-1").Return(testUser(), nil)
	signer.On("Sign", "user-1", domain.RoleUser, "sess-1").Return("bearer-2", nil)

	pair, err := newSvc(us, ss, signer).Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.True(t, pair.Complete())
	assert.NotEqual(t, "old-token", pair.RefreshToken)
	ss.AssertCalled(t, "RotateRefreshToken", mock.Anything, "sess-1", mock.Anything, mock.Anything)
}

func TestRefreshExpiredToken(t *testing.T) {
	us, ss, signer := &mockUserStore{}, &mockSessionStore{}, &mockSigner{}
	ss.On("GetByRefreshToken", mock.Anything, "stale").Return(&domain.Session{
		SessionID:        "sess-1",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}, nil)

	_, err := newSvc(us, ss, signer).Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestRefreshUnknownToken(t *testing.T) {
	us, ss, signer := &mockUserStore{}, &mockSessionStore{}, &mockSigner{}
	ss.On("GetByRefreshToken", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	_, err := newSvc(us, ss, signer).Refresh(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogoutDisablesSession(t *testing.T) {
	us, ss, signer := &mockUserStore{}, &mockSessionStore{}, &mockSigner{}
	ss.On("Update", mock.Anything, "sess-1", map[string]interface{}{"enable": false}).Return(nil)

	require.NoError(t, newSvc(us, ss, signer).Logout(context.Background(), "sess-1"))
	ss.AssertExpectations(t)
}
