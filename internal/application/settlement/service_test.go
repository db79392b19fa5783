package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSettlementStore reproduces the conditional status transitions in memory.
type fakeSettlementStore struct {
	records map[string]*domain.Settlement
}

func newFakeSettlementStore() *fakeSettlementStore {
	return &fakeSettlementStore{records: make(map[string]*domain.Settlement)}
}

func (f *fakeSettlementStore) Put(ctx context.Context, s *domain.Settlement) error {
	cp := *s
	f.records[s.SettlementID] = &cp
	return nil
}

func (f *fakeSettlementStore) Get(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	s, ok := f.records[settlementID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSettlementStore) ListByUser(ctx context.Context, userID string) ([]domain.Settlement, error) {
	var out []domain.Settlement
	for _, s := range f.records {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSettlementStore) Transition(ctx context.Context, settlementID string, from, to domain.SettlementStatus, extra map[string]interface{}) error {
	s, ok := f.records[settlementID]
	if !ok || s.Status != from {
		return fmt.Errorf("settlement not at status %s: %w", from, domain.ErrConflict)
	}
	s.Status = to
	if key, ok := extra["statement_key"].(string); ok {
		s.StatementKey = key
	}
	if reason, ok := extra["failure_reason"].(string); ok {
		s.FailureReason = reason
	}
	return nil
}

type mockPaymentStore struct{ mock.Mock }

func (m *mockPaymentStore) ListByPartyPeriod(ctx context.Context, partyID, period string) ([]domain.Payment, error) {
	args := m.Called(ctx, partyID, period)
	if p, _ := args.Get(0).([]domain.Payment); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, userID string) (*domain.BankAccount, error) {
	args := m.Called(ctx, userID)
	if a, _ := args.Get(0).(*domain.BankAccount); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type mockWire struct{ mock.Mock }

func (m *mockWire) IssueMicroDeposit(ctx context.Context, bankCode, accountNumber string) (string, error) {
	args := m.Called(ctx, bankCode, accountNumber)
	return args.String(0), args.Error(1)
}
func (m *mockWire) Transfer(ctx context.Context, bankCode, accountNumber string, amount int64, memo string) (string, error) {
	args := m.Called(ctx, bankCode, accountNumber, amount, memo)
	return args.String(0), args.Error(1)
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) PutJSON(ctx context.Context, key string, v interface{}) (string, error) {
	args := m.Called(ctx, key, v)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func completedPayment(amount int64) domain.Payment {
	return domain.Payment{
		PaymentID: "pay-" + fmt.Sprint(amount),
		PartyID:   "party-1",
		UserID:    "member-1",
		Period:    "2026-08",
		Amount:    amount,
		Status:    domain.PaymentCompleted,
	}
}

func newSvc(ss SettlementStore, ps *mockPaymentStore, as *mockAccountStore, ns *mockNotificationStore, w *mockWire, ar *mockArchiver) Service {
	return NewService(ServiceDeps{
		SettlementRepo:   ss,
		PaymentRepo:      ps,
		AccountRepo:      as,
		NotificationRepo: ns,
		Wire:             w,
		Archiver:         ar,
		CommissionBPS:    500,
	})
}

// --- tests ---

func TestClosePeriodAggregatesCompletedOnly(t *testing.T) {
	ss, ps := newFakeSettlementStore(), &mockPaymentStore{}
	failed := completedPayment(9999)
	failed.Status = domain.PaymentFailed
	ps.On("ListByPartyPeriod", mock.Anything, "party-1", "2026-08").Return([]domain.Payment{
		completedPayment(4250),
		completedPayment(4250),
		failed,
	}, nil)

	st, err := newSvc(ss, ps, &mockAccountStore{}, &mockNotificationStore{}, &mockWire{}, &mockArchiver{}).
		ClosePeriod(context.Background(), "party-1", "leader-1", "2026-08")
	require.NoError(t, err)
	assert.Equal(t, int64(8500), st.TotalAmount)
	assert.Equal(t, int64(425), st.CommissionAmount) // 5%
	assert.Equal(t, int64(8075), st.NetAmount)
	assert.True(t, st.Consistent())
	assert.Equal(t, domain.SettlementPending, st.Status)
	assert.Equal(t, "leader-1", st.UserID)
}

func TestClosePeriodNoCompletedPayments(t *testing.T) {
	ps := &mockPaymentStore{}
	ps.On("ListByPartyPeriod", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Payment{}, nil)

	_, err := newSvc(newFakeSettlementStore(), ps, &mockAccountStore{}, &mockNotificationStore{}, &mockWire{}, &mockArchiver{}).
		ClosePeriod(context.Background(), "party-1", "leader-1", "2026-08")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func pendingSettlement() *domain.Settlement {
	return &domain.Settlement{
		SettlementID:     "st-1",
		PartyID:          "party-1",
		UserID:           "leader-1",
		Period:           "2026-08",
		TotalAmount:      8500,
		CommissionAmount: 425,
		NetAmount:        8075,
		Status:           domain.SettlementPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestRunPaysOutAndArchives(t *testing.T) {
	ss := newFakeSettlementStore()
	require.NoError(t, ss.Put(context.Background(), pendingSettlement()))
	as, ns, w, ar := &mockAccountStore{}, &mockNotificationStore{}, &mockWire{}, &mockArchiver{}
	as.On("Get", mock.Anything, "leader-1").Return(&domain.BankAccount{
		UserID: "leader-1", BankCode: "088", AccountNumber: "1234567890", Verified: true,
	}, nil)
	w.On("Transfer", mock.Anything, "088", "1234567890", int64(8075), "2026-08 정산").Return("tr-1", nil)
	ar.On("PutJSON", mock.Anything, "statements/2026-08/st-1.json", mock.Anything).Return("s3://statements/...", nil)
	ns.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.Kind == domain.NotifySettlementCompleted && n.UserID == "leader-1"
	})).Return(nil)

	st, err := newSvc(ss, &mockPaymentStore{}, as, ns, w, ar).Run(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementCompleted, st.Status)
	assert.Equal(t, "statements/2026-08/st-1.json", st.StatementKey)
	assert.True(t, st.Consistent())
	w.AssertExpectations(t)
	ns.AssertExpectations(t)
}

func TestRunRefusesSecondClaim(t *testing.T) {
	ss := newFakeSettlementStore()
	st := pendingSettlement()
	st.Status = domain.SettlementInProgress
	require.NoError(t, ss.Put(context.Background(), st))
	w := &mockWire{}

	_, err := newSvc(ss, &mockPaymentStore{}, &mockAccountStore{}, &mockNotificationStore{}, w, &mockArchiver{}).
		Run(context.Background(), "st-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	w.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunUnverifiedAccountFailsSettlement(t *testing.T) {
	ss := newFakeSettlementStore()
	require.NoError(t, ss.Put(context.Background(), pendingSettlement()))
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "leader-1").Return(nil, domain.ErrNotFound)

	_, err := newSvc(ss, &mockPaymentStore{}, as, &mockNotificationStore{}, &mockWire{}, &mockArchiver{}).
		Run(context.Background(), "st-1")
	require.Error(t, err)
	got, gerr := ss.Get(context.Background(), "st-1")
	require.NoError(t, gerr)
	assert.Equal(t, domain.SettlementFailed, got.Status)
	assert.NotEmpty(t, got.FailureReason)
}

func TestRunTransferFailureMarksFailed(t *testing.T) {
	ss := newFakeSettlementStore()
	require.NoError(t, ss.Put(context.Background(), pendingSettlement()))
	as, w := &mockAccountStore{}, &mockWire{}
	as.On("Get", mock.Anything, "leader-1").Return(&domain.BankAccount{
		UserID: "leader-1", BankCode: "088", AccountNumber: "1234567890", Verified: true,
	}, nil)
	w.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", domain.ErrExternalProvider)

	_, err := newSvc(ss, &mockPaymentStore{}, as, &mockNotificationStore{}, w, &mockArchiver{}).
		Run(context.Background(), "st-1")
	require.ErrorIs(t, err, domain.ErrExternalProvider)
	got, gerr := ss.Get(context.Background(), "st-1")
	require.NoError(t, gerr)
	assert.Equal(t, domain.SettlementFailed, got.Status)
}

func TestRunInconsistentAmountsRefused(t *testing.T) {
	ss := newFakeSettlementStore()
	st := pendingSettlement()
	st.NetAmount = 9999
	require.NoError(t, ss.Put(context.Background(), st))

	_, err := newSvc(ss, &mockPaymentStore{}, &mockAccountStore{}, &mockNotificationStore{}, &mockWire{}, &mockArchiver{}).
		Run(context.Background(), "st-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSettlementStatusLabelsAreTotal(t *testing.T) {
	assert.Equal(t, "정산 대기", domain.SettlementStatusLabel(domain.SettlementPending))
	assert.Equal(t, "정산 진행중", domain.SettlementStatusLabel(domain.SettlementInProgress))
	assert.Equal(t, "정산 완료", domain.SettlementStatusLabel(domain.SettlementCompleted))
	assert.Equal(t, "정산 실패", domain.SettlementStatusLabel(domain.SettlementFailed))
	assert.Equal(t, "처리중", domain.SettlementStatusLabel(domain.SettlementStatus("AUDIT")))
}
