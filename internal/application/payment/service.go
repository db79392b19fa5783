package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/infrastructure/paygate"
	"github.com/ottshare/party-api/internal/pkg/id"
)

// retryBackoff is how far out the next retry window opens after a failure.
const retryBackoff = 24 * time.Hour

type PaymentStore interface {
	Put(ctx context.Context, p *domain.Payment) error
	Get(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
	Claim(ctx context.Context, paymentID string) error
	MarkCompleted(ctx context.Context, paymentID string) error
	MarkFailed(ctx context.Context, paymentID string, attemptNumber int, nextRetry time.Time, canRetry bool, reason string) error
}

type NotificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type Service interface {
	Retry(ctx context.Context, userID, paymentID string) (*domain.Payment, error)
	Get(ctx context.Context, userID, paymentID string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
}

type ServiceDeps struct {
	PaymentRepo      PaymentStore
	NotificationRepo NotificationStore
	Gateway          paygate.Gateway
}

type service struct {
	paymentRepo      PaymentStore
	notificationRepo NotificationStore
	gateway          paygate.Gateway
}

func NewService(deps ServiceDeps) Service {
	return &service{
		paymentRepo:      deps.PaymentRepo,
		notificationRepo: deps.NotificationRepo,
		gateway:          deps.Gateway,
	}
}

// Retry re-charges a failed payment. The call is idempotent from the caller's
// side: an already-completed payment returns its current state without
// charging, and the conditional FAILED→PENDING claim guarantees that two
// concurrent retries charge at most once. Only this path increments the
// attempt number, and only on a failed charge.
func (s *service) Retry(ctx context.Context, userID, paymentID string) (*domain.Payment, error) {
	p, err := s.paymentRepo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("payment belongs to another user: %w", domain.ErrForbidden)
	}
	if p.Status == domain.PaymentCompleted {
		return p, nil
	}
	if !p.RetryEligible() {
		if p.Status == domain.PaymentFailed {
			return nil, fmt.Errorf("payment %s: %w", paymentID, domain.ErrRetryExhausted)
		}
		return nil, fmt.Errorf("payment %s not retryable in status %s: %w", paymentID, p.Status, domain.ErrConflict)
	}

	if err := s.paymentRepo.Claim(ctx, paymentID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// lost the race; report whatever state won
			return s.paymentRepo.Get(ctx, paymentID)
		}
		return nil, err
	}

	result, err := s.gateway.Charge(ctx, paymentID, userID, p.Amount)
	if err != nil {
		s.recordFailure(ctx, p, "결제 요청에 실패했습니다", nil)
		return nil, err
	}
	if !result.Approved {
		s.recordFailure(ctx, p, result.FailureReason, result.Retryable)
		return s.paymentRepo.Get(ctx, paymentID)
	}

	if err := s.paymentRepo.MarkCompleted(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.paymentRepo.Get(ctx, paymentID)
}

func (s *service) Get(ctx context.Context, userID, paymentID string) (*domain.Payment, error) {
	p, err := s.paymentRepo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("payment belongs to another user: %w", domain.ErrForbidden)
	}
	return p, nil
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, userID)
}

// recordFailure moves the claimed payment back to FAILED with the next attempt
// number and retry window, then writes a notification for the user.
func (s *service) recordFailure(ctx context.Context, p *domain.Payment, reason string, gatewayRetryable *bool) {
	attempt := 1
	if p.AttemptNumber != nil {
		attempt = *p.AttemptNumber + 1
	}
	canRetry := attempt < domain.MaxPaymentAttempts
	if gatewayRetryable != nil && !*gatewayRetryable {
		canRetry = false
	}
	nextRetry := time.Now().UTC().Add(retryBackoff)
	if err := s.paymentRepo.MarkFailed(ctx, p.PaymentID, attempt, nextRetry, canRetry, reason); err != nil {
		slog.Error("failed to record payment failure", "payment_id", p.PaymentID, "err", err)
		return
	}
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         p.UserID,
		Kind:           domain.NotifyPaymentFailed,
		Message:        fmt.Sprintf("%s 결제가 실패했습니다 (%d회차)", p.Period, attempt),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.notificationRepo.Put(ctx, n); err != nil {
		slog.Warn("failed to write payment notification", "payment_id", p.PaymentID, "err", err)
	}
}
