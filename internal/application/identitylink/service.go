package identitylink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/infrastructure/pass"
	"github.com/ottshare/party-api/internal/pkg/inflight"
)

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type SessionOpener interface {
	Open(ctx context.Context, user *domain.User) (*domain.TokenPair, *domain.Session, error)
}

// LinkConflictMessage is surfaced verbatim when the phone identity is already
// linked to another account for the same provider.
const LinkConflictMessage = "이미 연동된 계정입니다"

// ErrCertificationInFlight is returned when a certification for the same
// social identity is already outstanding. The caller treats it as a no-op.
var ErrCertificationInFlight = fmt.Errorf("certification already in flight: %w", domain.ErrConflict)

// ConfirmResult is the terminal result of a link flow. Tokens and Session are
// set only when State is linked.
type ConfirmResult struct {
	State   domain.LinkState
	Tokens  *domain.TokenPair
	Session *domain.Session
}

type Service interface {
	Start(ctx context.Context, pending domain.PendingSocialIdentity) (*domain.CertificationDescriptor, error)
	CompleteCertification(ctx context.Context, txID string) error
	Confirm(ctx context.Context, txID string, accepted bool) (*ConfirmResult, error)
	Sweep()
}

type ServiceDeps struct {
	Certifier pass.Certifier
	UserRepo  UserStore
	Sessions  SessionOpener
	FlowTTL   time.Duration
}

type service struct {
	certifier pass.Certifier
	userRepo  UserStore
	sessions  SessionOpener
	guard     *inflight.Guard
	flows     *registry
}

func NewService(deps ServiceDeps) Service {
	return &service{
		certifier: deps.Certifier,
		userRepo:  deps.UserRepo,
		sessions:  deps.Sessions,
		guard:     inflight.NewGuard(),
		flows:     newRegistry(deps.FlowTTL),
	}
}

// Start opens a certification transaction for the pending identity. While one
// is outstanding for the same identity, further starts are rejected so the
// widget never sees duplicate transaction ids.
func (s *service) Start(ctx context.Context, pending domain.PendingSocialIdentity) (*domain.CertificationDescriptor, error) {
	if pending.Provider == "" || pending.ProviderUserID == "" {
		return nil, fmt.Errorf("pending identity required: %w", domain.ErrValidation)
	}
	if !s.guard.TryAcquire(pending.Key()) {
		return nil, ErrCertificationInFlight
	}
	desc, err := s.certifier.Start(ctx)
	if err != nil {
		s.guard.Release(pending.Key())
		return nil, fmt.Errorf("certification start: %w", err)
	}
	s.flows.put(desc.TransactionID, &flow{state: domain.LinkCertificationStarted, pending: pending})
	return desc, nil
}

// CompleteCertification verifies the widget's receipt server-side. A receipt
// missing phone or CI is a hard failure that ends the flow.
func (s *service) CompleteCertification(ctx context.Context, txID string) error {
	f, ok := s.flows.get(txID)
	if !ok {
		return fmt.Errorf("certification %s not found or expired: %w", txID, domain.ErrNotFound)
	}
	if f.state != domain.LinkCertificationStarted {
		return fmt.Errorf("certification %s not awaiting receipt: %w", txID, domain.ErrConflict)
	}
	receipt, err := s.certifier.VerifyReceipt(ctx, txID)
	if err != nil {
		s.fail(txID, f.pending.Key())
		return err
	}
	if !receipt.Valid() {
		s.fail(txID, f.pending.Key())
		return fmt.Errorf("certification receipt incomplete: %w", domain.ErrVerificationMismatch)
	}
	if _, err := s.flows.transition(txID, domain.LinkCertificationStarted, domain.LinkReceiptVerified, func(fl *flow) {
		fl.receipt = receipt
	}); err != nil {
		return s.flowError(txID, err, "not awaiting receipt")
	}
	return nil
}

// Confirm is the explicit consent gate. Declining ends the flow but keeps the
// pending identity usable for another attempt. Accepting links the social
// identity to the account owning the certified phone and opens a session.
func (s *service) Confirm(ctx context.Context, txID string, accepted bool) (*ConfirmResult, error) {
	if !accepted {
		f, err := s.flows.transition(txID, domain.LinkReceiptVerified, domain.LinkDeclined, nil)
		if err != nil {
			return nil, s.flowError(txID, err, "not awaiting confirmation")
		}
		s.flows.remove(txID)
		s.guard.Release(f.pending.Key())
		return &ConfirmResult{State: domain.LinkDeclined}, nil
	}

	// Claiming the confirmation under the registry lock keeps a second Confirm
	// for the same transaction from linking twice.
	f, err := s.flows.transition(txID, domain.LinkReceiptVerified, domain.LinkUserConfirmed, nil)
	if err != nil {
		return nil, s.flowError(txID, err, "not awaiting confirmation")
	}
	receipt := f.receipt

	u, err := s.userRepo.GetByPhone(ctx, receipt.Phone)
	if err != nil {
		s.fail(txID, f.pending.Key())
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no account for certified phone: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if u.Provider == f.pending.Provider && u.ProviderUserID != "" {
		s.fail(txID, f.pending.Key())
		return nil, fmt.Errorf("%s: %w", LinkConflictMessage, domain.ErrLinkConflict)
	}
	if u.CI != "" && u.CI != receipt.CI {
		s.fail(txID, f.pending.Key())
		return nil, fmt.Errorf("certified identity does not match account: %w", domain.ErrVerificationMismatch)
	}

	updates := map[string]interface{}{
		"provider":         f.pending.Provider,
		"provider_user_id": f.pending.ProviderUserID,
		"provider_key":     domain.SocialIdentityKey(f.pending.Provider, f.pending.ProviderUserID),
		"ci":               receipt.CI,
		"phone":            receipt.Phone,
		"phone_verified":   true,
	}
	if err := s.userRepo.Update(ctx, u.UserID, updates); err != nil {
		s.fail(txID, f.pending.Key())
		return nil, err
	}

	fresh, err := s.userRepo.Get(ctx, u.UserID)
	if err != nil {
		s.fail(txID, f.pending.Key())
		return nil, err
	}
	tokens, sess, err := s.sessions.Open(ctx, fresh)
	if err != nil {
		s.fail(txID, f.pending.Key())
		return nil, err
	}

	s.flows.remove(txID)
	s.guard.Release(f.pending.Key())
	return &ConfirmResult{State: domain.LinkLinked, Tokens: tokens, Session: sess}, nil
}

// Sweep drops expired flows and releases their guards. Run it periodically.
func (s *service) Sweep() {
	for _, key := range s.flows.sweep() {
		s.guard.Release(key)
		slog.Info("certification flow expired", "identity", key)
	}
}

func (s *service) fail(txID, identityKey string) {
	s.flows.remove(txID)
	s.guard.Release(identityKey)
}

func (s *service) flowError(txID string, err error, conflictMsg string) error {
	if errors.Is(err, errFlowState) {
		return fmt.Errorf("certification %s %s: %w", txID, conflictMsg, domain.ErrConflict)
	}
	return fmt.Errorf("certification %s not found or expired: %w", txID, domain.ErrNotFound)
}
