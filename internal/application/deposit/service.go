package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/pkg/id"
)

type DepositStore interface {
	Get(ctx context.Context, depositID string) (*domain.Deposit, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error)
	ApplyOutcome(ctx context.Context, depositID string, outcome domain.DepositStatus) error
}

type NotificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type Service interface {
	ApplyOutcome(ctx context.Context, depositID string, outcome domain.DepositStatus) (*domain.Deposit, error)
	Get(ctx context.Context, userID, depositID string) (*domain.Deposit, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error)
}

type ServiceDeps struct {
	DepositRepo      DepositStore
	NotificationRepo NotificationStore
}

type service struct {
	depositRepo      DepositStore
	notificationRepo NotificationStore
}

func NewService(deps ServiceDeps) Service {
	return &service{depositRepo: deps.DepositRepo, notificationRepo: deps.NotificationRepo}
}

// ApplyOutcome consumes an external party-membership outcome for an escrowed
// deposit. Only PAID deposits can move, and only to a terminal outcome; both
// are enforced by the conditional write underneath.
func (s *service) ApplyOutcome(ctx context.Context, depositID string, outcome domain.DepositStatus) (*domain.Deposit, error) {
	if !domain.TerminalDepositStatus(outcome) {
		return nil, fmt.Errorf("invalid deposit outcome %s: %w", outcome, domain.ErrBadRequest)
	}
	if err := s.depositRepo.ApplyOutcome(ctx, depositID, outcome); err != nil {
		return nil, err
	}
	d, err := s.depositRepo.Get(ctx, depositID)
	if err != nil {
		return nil, err
	}
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         d.UserID,
		Kind:           domain.NotifyDepositOutcome,
		Message:        domain.DepositStatusLabel(d.Status),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.notificationRepo.Put(ctx, n); err != nil {
		slog.Warn("failed to write deposit notification", "deposit_id", depositID, "err", err)
	}
	return d, nil
}

func (s *service) Get(ctx context.Context, userID, depositID string) (*domain.Deposit, error) {
	d, err := s.depositRepo.Get(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("deposit belongs to another user: %w", domain.ErrForbidden)
	}
	return d, nil
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Deposit, error) {
	return s.depositRepo.ListByUser(ctx, userID)
}
