package pass

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/pkg/id"
)

// Sandbox is an in-process certifier for local development. Every started
// transaction certifies immediately with a synthetic phone number and a CI
// derived from it, so the rest of the flow behaves as in production.
type Sandbox struct {
	mu     sync.Mutex
	seq    int
	phones map[string]string
}

func NewSandbox() *Sandbox {
	return &Sandbox{phones: make(map[string]string)}
}

func (s *Sandbox) Start(ctx context.Context) (*domain.CertificationDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	txID := id.New()
	s.phones[txID] = fmt.Sprintf("010%08d", s.seq)
	return &domain.CertificationDescriptor{
		MerchantID:    "sandbox",
		TransactionID: txID,
		WidgetURL:     "about:blank",
	}, nil
}

func (s *Sandbox) VerifyReceipt(ctx context.Context, transactionID string) (*domain.CertificationReceipt, error) {
	s.mu.Lock()
	phone, ok := s.phones[transactionID]
	delete(s.phones, transactionID)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown certification %s: %w", transactionID, domain.ErrNotFound)
	}
	sum := sha256.Sum256([]byte(phone))
	return &domain.CertificationReceipt{Phone: phone, CI: hex.EncodeToString(sum[:])}, nil
}
