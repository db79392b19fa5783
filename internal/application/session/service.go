package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/pkg/id"
	pkgtoken "github.com/ottshare/party-api/internal/pkg/token"
)

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type SessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

type TokenSigner interface {
	Sign(userID, role, sessionID string) (string, error)
	Expiry() time.Duration
}

type Service interface {
	Open(ctx context.Context, user *domain.User) (*domain.TokenPair, *domain.Session, error)
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, sessionID string) error
}

type ServiceDeps struct {
	SessionRepo     SessionStore
	UserRepo        UserStore
	JWTProvider     TokenSigner
	RefreshTokenDur time.Duration
}

type service struct {
	sessionRepo     SessionStore
	userRepo        UserStore
	jwtProvider     TokenSigner
	refreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		sessionRepo:     deps.SessionRepo,
		userRepo:        deps.UserRepo,
		jwtProvider:     deps.JWTProvider,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

// Open creates an enabled session for the user and signs a token pair for it.
// The pair is complete or the call fails; a bearer is never handed out without
// its refresh token.
func (s *service) Open(ctx context.Context, user *domain.User) (*domain.TokenPair, *domain.Session, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           user.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, nil, err
	}
	bearer, err := s.jwtProvider.Sign(user.UserID, user.Role, sess.SessionID)
	if err != nil {
		// the stored session must not stay usable when no pair was handed out
		if dErr := s.sessionRepo.Update(ctx, sess.SessionID, map[string]interface{}{"enable": false}); dErr != nil {
			slog.Warn("failed to disable session after signing error", "session_id", sess.SessionID, "error", dErr)
		}
		return nil, nil, err
	}
	sess.User = user
	pair := &domain.TokenPair{
		AccessToken:  bearer,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtProvider.Expiry().Seconds()),
	}
	return pair, sess, nil
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session disabled: %w", domain.ErrSessionExpired)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrSessionExpired)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := time.Now().Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return nil, err
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:  bearer,
		RefreshToken: newToken,
		ExpiresIn:    int64(s.jwtProvider.Expiry().Seconds()),
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}
