package bankwire

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/ottshare/party-api/internal/pkg/id"
)

// VirtualBank is an in-process wire for local development. Issued references
// are remembered so tests and manual runs can read them back.
type VirtualBank struct {
	mu   sync.Mutex
	refs map[string]string // bankCode:accountNumber -> last reference
}

func NewVirtualBank() *VirtualBank {
	return &VirtualBank{refs: make(map[string]string)}
}

func (v *VirtualBank) IssueMicroDeposit(ctx context.Context, bankCode, accountNumber string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	ref := fmt.Sprintf("파티%04d", n.Int64())
	v.mu.Lock()
	v.refs[bankCode+":"+accountNumber] = ref
	v.mu.Unlock()
	return ref, nil
}

func (v *VirtualBank) Transfer(ctx context.Context, bankCode, accountNumber string, amount int64, memo string) (string, error) {
	return id.New(), nil
}

// LastReference returns the most recent reference issued to the account.
func (v *VirtualBank) LastReference(bankCode, accountNumber string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ref, ok := v.refs[bankCode+":"+accountNumber]
	return ref, ok
}
