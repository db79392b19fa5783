package oauthgw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/infrastructure/oauth"
)

type UserStore interface {
	GetBySocialIdentity(ctx context.Context, provider, providerUserID string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
}

type SessionOpener interface {
	Open(ctx context.Context, user *domain.User) (*domain.TokenPair, *domain.Session, error)
}

// Status values carried in the provider redirect.
const (
	StatusLogin            = "LOGIN"
	StatusNeedRegister     = "NEED_REGISTER"
	StatusNeedPhoneConnect = "NEED_PHONE_CONNECT"
)

// Outcome is the single result of resolving a provider callback. Exactly one
// branch is populated: Tokens for a login, Pending for the register and
// phone-connect branches, neither for Failed.
type Outcome struct {
	Status  string
	Tokens  *domain.TokenPair
	Session *domain.Session
	Pending *domain.PendingSocialIdentity
	Failed  bool
}

type Service interface {
	HandleProviderCallback(ctx context.Context, provider, credential string) (*Outcome, error)
	BuildRedirect(base string, out *Outcome) (string, error)
	ParseRedirect(values url.Values) *Outcome
}

type ServiceDeps struct {
	Verifier oauth.Verifier
	UserRepo UserStore
	Sessions SessionOpener
}

type service struct {
	verifier oauth.Verifier
	userRepo UserStore
	sessions SessionOpener
}

func NewService(deps ServiceDeps) Service {
	return &service{verifier: deps.Verifier, userRepo: deps.UserRepo, sessions: deps.Sessions}
}

// HandleProviderCallback verifies the provider credential and resolves it to
// exactly one outcome: a full login for a known identity, a phone-connect
// branch when an account with the attested phone exists, or a register branch.
func (s *service) HandleProviderCallback(ctx context.Context, provider, credential string) (*Outcome, error) {
	profile, err := s.verifier.Verify(ctx, provider, credential)
	if err != nil {
		return nil, err
	}

	u, err := s.userRepo.GetBySocialIdentity(ctx, profile.Provider, profile.ProviderUserID)
	if err == nil {
		if !u.Enable {
			return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
		}
		tokens, sess, err := s.sessions.Open(ctx, u)
		if err != nil {
			return nil, err
		}
		return &Outcome{Status: StatusLogin, Tokens: tokens, Session: sess}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	pending := &domain.PendingSocialIdentity{
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Phone:          profile.Phone,
	}

	if profile.Phone != "" {
		if _, err := s.userRepo.GetByPhone(ctx, profile.Phone); err == nil {
			pending.Phone = maskPhone(profile.Phone)
			return &Outcome{Status: StatusNeedPhoneConnect, Pending: pending}, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	pending.Phone = ""
	return &Outcome{Status: StatusNeedRegister, Pending: pending}, nil
}

// BuildRedirect encodes an outcome into the front-end redirect URL.
func (s *service) BuildRedirect(base string, out *Outcome) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("status", out.Status)
	switch out.Status {
	case StatusLogin:
		q.Set("accessToken", out.Tokens.AccessToken)
		q.Set("refreshToken", out.Tokens.RefreshToken)
		q.Set("expiresIn", strconv.FormatInt(out.Tokens.ExpiresIn, 10))
	case StatusNeedRegister:
		q.Set("provider", out.Pending.Provider)
		q.Set("providerUserId", out.Pending.ProviderUserID)
		q.Set("email", out.Pending.Email)
	case StatusNeedPhoneConnect:
		q.Set("provider", out.Pending.Provider)
		q.Set("providerUserId", out.Pending.ProviderUserID)
		q.Set("phone", out.Pending.Phone)
	default:
		return "", fmt.Errorf("unknown outcome status %q: %w", out.Status, domain.ErrBadRequest)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseRedirect interprets redirect query parameters. It is pure and
// idempotent; anything outside the known statuses, or a login missing either
// token, resolves to Failed with no state retained.
func (s *service) ParseRedirect(values url.Values) *Outcome {
	switch values.Get("status") {
	case StatusLogin:
		access := values.Get("accessToken")
		refresh := values.Get("refreshToken")
		if access == "" || refresh == "" {
			slog.Warn("login redirect missing tokens")
			return &Outcome{Failed: true}
		}
		expiresIn, _ := strconv.ParseInt(values.Get("expiresIn"), 10, 64)
		return &Outcome{
			Status: StatusLogin,
			Tokens: &domain.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn},
		}
	case StatusNeedRegister:
		return &Outcome{
			Status: StatusNeedRegister,
			Pending: &domain.PendingSocialIdentity{
				Provider:       values.Get("provider"),
				ProviderUserID: values.Get("providerUserId"),
				Email:          values.Get("email"),
			},
		}
	case StatusNeedPhoneConnect:
		return &Outcome{
			Status: StatusNeedPhoneConnect,
			Pending: &domain.PendingSocialIdentity{
				Provider:       values.Get("provider"),
				ProviderUserID: values.Get("providerUserId"),
				Phone:          values.Get("phone"),
			},
		}
	default:
		return &Outcome{Failed: true}
	}
}

// maskPhone hides the middle digits of a phone number for redirect transport.
func maskPhone(phone string) string {
	if len(phone) < 8 {
		return "****"
	}
	return phone[:3] + "****" + phone[len(phone)-4:]
}
