package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/infrastructure/bankwire"
	"github.com/ottshare/party-api/internal/pkg/id"
)

type SettlementStore interface {
	Put(ctx context.Context, s *domain.Settlement) error
	Get(ctx context.Context, settlementID string) (*domain.Settlement, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Settlement, error)
	Transition(ctx context.Context, settlementID string, from, to domain.SettlementStatus, extra map[string]interface{}) error
}

type PaymentStore interface {
	ListByPartyPeriod(ctx context.Context, partyID, period string) ([]domain.Payment, error)
}

type AccountStore interface {
	Get(ctx context.Context, userID string) (*domain.BankAccount, error)
}

type NotificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

// StatementArchiver stores the payout statement and returns its location.
type StatementArchiver interface {
	PutJSON(ctx context.Context, key string, v interface{}) (string, error)
}

type Service interface {
	ClosePeriod(ctx context.Context, partyID, leaderUserID, period string) (*domain.Settlement, error)
	Run(ctx context.Context, settlementID string) (*domain.Settlement, error)
	Get(ctx context.Context, userID, settlementID string) (*domain.Settlement, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Settlement, error)
}

type ServiceDeps struct {
	SettlementRepo   SettlementStore
	PaymentRepo      PaymentStore
	AccountRepo      AccountStore
	NotificationRepo NotificationStore
	Wire             bankwire.Wire
	Archiver         StatementArchiver
	CommissionBPS    int64
}

type service struct {
	settlementRepo   SettlementStore
	paymentRepo      PaymentStore
	accountRepo      AccountStore
	notificationRepo NotificationStore
	wire             bankwire.Wire
	archiver         StatementArchiver
	commissionBPS    int64
}

func NewService(deps ServiceDeps) Service {
	return &service{
		settlementRepo:   deps.SettlementRepo,
		paymentRepo:      deps.PaymentRepo,
		accountRepo:      deps.AccountRepo,
		notificationRepo: deps.NotificationRepo,
		wire:             deps.Wire,
		archiver:         deps.Archiver,
		commissionBPS:    deps.CommissionBPS,
	}
}

// ClosePeriod aggregates the period's completed payments for a party into a
// pending settlement for its leader. Commission is taken in basis points of
// the gross; the net always equals gross minus commission.
func (s *service) ClosePeriod(ctx context.Context, partyID, leaderUserID, period string) (*domain.Settlement, error) {
	payments, err := s.paymentRepo.ListByPartyPeriod(ctx, partyID, period)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, p := range payments {
		if p.Status == domain.PaymentCompleted {
			total += p.Amount
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("no completed payments for %s/%s: %w", partyID, period, domain.ErrNotFound)
	}
	commission := total * s.commissionBPS / 10000
	now := time.Now().UTC()
	st := &domain.Settlement{
		SettlementID:     id.New(),
		PartyID:          partyID,
		UserID:           leaderUserID,
		Period:           period,
		TotalAmount:      total,
		CommissionAmount: commission,
		NetAmount:        total - commission,
		Status:           domain.SettlementPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.settlementRepo.Put(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Run pays a pending settlement out to the leader's verified bank account and
// archives the statement. The PENDING→IN_PROGRESS transition is conditional,
// so a settlement is never paid twice; any failure after the claim lands the
// record in FAILED for manual reconciliation.
func (s *service) Run(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	st, err := s.settlementRepo.Get(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if !st.Consistent() {
		return nil, fmt.Errorf("settlement %s amounts inconsistent: %w", settlementID, domain.ErrConflict)
	}
	if err := s.settlementRepo.Transition(ctx, settlementID, domain.SettlementPending, domain.SettlementInProgress, nil); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.Get(ctx, st.UserID)
	if err != nil || !account.Verified {
		s.fail(ctx, settlementID, "정산 계좌가 확인되지 않았습니다")
		return nil, fmt.Errorf("no verified bank account for payee: %w", domain.ErrConflict)
	}

	transferID, err := s.wire.Transfer(ctx, account.BankCode, account.AccountNumber, st.NetAmount, st.Period+" 정산")
	if err != nil {
		s.fail(ctx, settlementID, "이체에 실패했습니다")
		return nil, err
	}

	key := fmt.Sprintf("statements/%s/%s.json", st.Period, st.SettlementID)
	location, err := s.archiver.PutJSON(ctx, key, map[string]interface{}{
		"settlement_id":     st.SettlementID,
		"party_id":          st.PartyID,
		"period":            st.Period,
		"total_amount":      st.TotalAmount,
		"commission_amount": st.CommissionAmount,
		"net_amount":        st.NetAmount,
		"transfer_id":       transferID,
		"paid_at":           time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Error("failed to archive settlement statement", "settlement_id", settlementID, "err", err)
		key = ""
	} else {
		slog.Info("settlement statement archived", "settlement_id", settlementID, "location", location)
	}

	if err := s.settlementRepo.Transition(ctx, settlementID, domain.SettlementInProgress, domain.SettlementCompleted, map[string]interface{}{
		"statement_key": key,
	}); err != nil {
		return nil, err
	}
	s.notifyCompleted(ctx, st)
	return s.settlementRepo.Get(ctx, settlementID)
}

func (s *service) Get(ctx context.Context, userID, settlementID string) (*domain.Settlement, error) {
	st, err := s.settlementRepo.Get(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if st.UserID != userID {
		return nil, fmt.Errorf("settlement belongs to another user: %w", domain.ErrForbidden)
	}
	return st, nil
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Settlement, error) {
	return s.settlementRepo.ListByUser(ctx, userID)
}

func (s *service) fail(ctx context.Context, settlementID, reason string) {
	err := s.settlementRepo.Transition(ctx, settlementID, domain.SettlementInProgress, domain.SettlementFailed, map[string]interface{}{
		"failure_reason": reason,
	})
	if err != nil {
		slog.Error("failed to mark settlement failed", "settlement_id", settlementID, "err", err)
	}
}

func (s *service) notifyCompleted(ctx context.Context, st *domain.Settlement) {
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         st.UserID,
		Kind:           domain.NotifySettlementCompleted,
		Message:        fmt.Sprintf("%s 정산이 완료되었습니다 (%d원)", st.Period, st.NetAmount),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.notificationRepo.Put(ctx, n); err != nil {
		slog.Warn("failed to write settlement notification", "settlement_id", st.SettlementID, "err", err)
	}
}
