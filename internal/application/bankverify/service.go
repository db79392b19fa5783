package bankverify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/infrastructure/bankwire"
	"github.com/ottshare/party-api/internal/infrastructure/sns"
)

type VerificationStore interface {
	Reset(ctx context.Context, v *domain.BankVerification) error
	Get(ctx context.Context, userID string) (*domain.BankVerification, error)
	Advance(ctx context.Context, userID string, from, to domain.BankVerificationStep, extra map[string]interface{}) error
	ConsumeReference(ctx context.Context, userID, reference string) error
	Annotate(ctx context.Context, userID, msg string) error
}

type AccountStore interface {
	Put(ctx context.Context, a *domain.BankAccount) error
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type Service interface {
	Enter(ctx context.Context, userID string) (*domain.BankVerification, error)
	SubmitAccount(ctx context.Context, userID, bankCode, accountNumber string) error
	MarkIssued(ctx context.Context, userID, depositReference string) error
	ConfirmDeposit(ctx context.Context, userID, reference string) (*domain.BankAccount, error)
	Current(ctx context.Context, userID string) (*domain.BankVerification, error)
}

type ServiceDeps struct {
	VerificationRepo VerificationStore
	AccountRepo      AccountStore
	UserRepo         UserStore
	Wire             bankwire.Wire
	SMSSender        sns.SMSSender
	SessionTTL       time.Duration
}

type service struct {
	verificationRepo VerificationStore
	accountRepo      AccountStore
	userRepo         UserStore
	wire             bankwire.Wire
	smsSender        sns.SMSSender
	sessionTTL       time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		verificationRepo: deps.VerificationRepo,
		accountRepo:      deps.AccountRepo,
		userRepo:         deps.UserRepo,
		wire:             deps.Wire,
		smsSender:        deps.SMSSender,
		sessionTTL:       deps.SessionTTL,
	}
}

// Enter starts or restarts the verification. The stored record is always
// overwritten with a fresh input-stage session, whatever step it was at.
func (s *service) Enter(ctx context.Context, userID string) (*domain.BankVerification, error) {
	now := time.Now().UTC()
	v := &domain.BankVerification{
		UserID:    userID,
		Step:      domain.BankStepInput,
		ExpiresAt: now.Add(s.sessionTTL).Unix(),
		UpdatedAt: now,
	}
	if err := s.verificationRepo.Reset(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SubmitAccount validates the bank details locally, moves the session to
// processing and requests a micro-deposit to the account. Issuance failure
// returns the session to input with an annotation.
func (s *service) SubmitAccount(ctx context.Context, userID, bankCode, accountNumber string) error {
	if !domain.ValidBankDetails(bankCode, accountNumber) {
		return fmt.Errorf("invalid bank details: %w", domain.ErrValidation)
	}
	err := s.verificationRepo.Advance(ctx, userID, domain.BankStepInput, domain.BankStepProcessing, map[string]interface{}{
		"bank_code":      bankCode,
		"account_number": accountNumber,
	})
	if err != nil {
		return err
	}

	reference, err := s.wire.IssueMicroDeposit(ctx, bankCode, accountNumber)
	if err != nil {
		if aerr := s.verificationRepo.Annotate(ctx, userID, "입금 요청에 실패했습니다"); aerr != nil {
			slog.Error("failed to annotate verification", "user_id", userID, "err", aerr)
		}
		return fmt.Errorf("micro-deposit issuance: %w", err)
	}
	if err := s.MarkIssued(ctx, userID, reference); err != nil {
		return err
	}
	s.notifyDepositSent(ctx, userID)
	return nil
}

// MarkIssued is the issuance confirmation: the deposit landed and the user
// can now read its reference. Moves processing to verify.
func (s *service) MarkIssued(ctx context.Context, userID, depositReference string) error {
	return s.verificationRepo.Advance(ctx, userID, domain.BankStepProcessing, domain.BankStepVerify, map[string]interface{}{
		"deposit_reference": depositReference,
		"consumed":          false,
	})
}

// ConfirmDeposit matches the user-supplied reference against the issued one.
// The match consumes the reference exactly once; replays and mismatches drop
// the session back to input with an annotation.
func (s *service) ConfirmDeposit(ctx context.Context, userID, reference string) (*domain.BankAccount, error) {
	if err := s.verificationRepo.ConsumeReference(ctx, userID, reference); err != nil {
		if errors.Is(err, domain.ErrVerificationMismatch) {
			if aerr := s.verificationRepo.Annotate(ctx, userID, "입금자명이 일치하지 않습니다"); aerr != nil {
				slog.Error("failed to annotate verification", "user_id", userID, "err", aerr)
			}
		}
		return nil, err
	}

	v, err := s.verificationRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	account := &domain.BankAccount{
		UserID:        userID,
		BankCode:      v.BankCode,
		AccountNumber: v.AccountNumber,
		Verified:      true,
		VerifiedAt:    now,
	}
	if err := s.accountRepo.Put(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) Current(ctx context.Context, userID string) (*domain.BankVerification, error) {
	return s.verificationRepo.Get(ctx, userID)
}

func (s *service) notifyDepositSent(ctx context.Context, userID string) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil || u.Phone == nil || !u.PhoneVerified {
		return
	}
	if err := s.smsSender.SendSMS(ctx, *u.Phone, "1원이 입금되었습니다. 입금자명을 확인해 주세요."); err != nil {
		slog.Warn("failed to send deposit notice", "user_id", userID, "err", err)
	}
}
