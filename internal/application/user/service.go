package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/infrastructure/smtp"
	"github.com/ottshare/party-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldNickname     = "nickname"
	fieldEmail        = "email"
	fieldPasswordHash = "password_hash"
)

type UpdateUserRequest struct {
	Nickname *string `json:"nickname" validate:"omitempty,min=2,max=30"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetBySocialIdentity(ctx context.Context, provider, providerUserID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
}

type sessionOpener interface {
	Open(ctx context.Context, user *domain.User) (*domain.TokenPair, *domain.Session, error)
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, *domain.Session, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
}

type ServiceDeps struct {
	UserRepo userStore
	Sessions sessionOpener
	Mailer   smtp.Mailer
}

type service struct {
	repo     userStore
	sessions sessionOpener
	mailer   smtp.Mailer
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo, sessions: deps.Sessions, mailer: deps.Mailer}
}

// Register completes the registration subflow for a new social identity.
// The account is created with the pending identity attached; an optional
// password enables the email fallback login. A full session is issued so the
// user lands authenticated.
func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, *domain.TokenPair, error) {
	if _, err := s.repo.GetBySocialIdentity(ctx, req.Provider, req.ProviderUserID); err == nil {
		return nil, nil, fmt.Errorf("identity already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	var passwordHash string
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, err
		}
		passwordHash = string(hash)
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:         id.New(),
		Nickname:       req.Nickname,
		Email:          req.Email,
		PasswordHash:   passwordHash,
		Role:           domain.RoleUser,
		Provider:       req.Provider,
		ProviderUserID: req.ProviderUserID,
		Enable:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, nil, err
	}

	tokens, _, err := s.sessions.Open(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	if err := s.mailer.SendEmail(u.Email, "환영합니다", u.Nickname+"님, 가입이 완료되었습니다."); err != nil {
		slog.Warn("failed to send welcome email", "user_id", u.UserID, "err", err)
	}
	return u, tokens, nil
}

// Login is the email+password fallback for accounts that set a password.
func (s *service) Login(ctx context.Context, email, password string) (*domain.TokenPair, *domain.Session, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if u.PasswordHash == "" {
		return nil, nil, fmt.Errorf("account has no password login: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.sessions.Open(ctx, u)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req UpdateUserRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.Nickname != nil {
		updates[fieldNickname] = *req.Nickname
	}
	if req.Email != nil {
		if existing, err := s.repo.GetByEmail(ctx, *req.Email); err == nil && existing.UserID != userID {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		updates[fieldEmail] = *req.Email
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID string) error {
	return s.repo.SoftDelete(ctx, userID)
}
