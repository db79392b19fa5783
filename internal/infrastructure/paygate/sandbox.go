package paygate

import (
	"context"
	"sync"
)

// SandboxGateway approves every charge by default. Decline programs the next
// charge for a user to fail, which is how local runs exercise the retry path.
type SandboxGateway struct {
	mu       sync.Mutex
	declines map[string]declined
}

type declined struct {
	reason    string
	retryable *bool
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{declines: make(map[string]declined)}
}

// Decline makes the next charge for userID fail with the given reason.
func (g *SandboxGateway) Decline(userID, reason string, retryable *bool) {
	g.mu.Lock()
	g.declines[userID] = declined{reason: reason, retryable: retryable}
	g.mu.Unlock()
}

func (g *SandboxGateway) Charge(ctx context.Context, paymentID, userID string, amount int64) (*ChargeResult, error) {
	g.mu.Lock()
	d, ok := g.declines[userID]
	delete(g.declines, userID)
	g.mu.Unlock()
	if ok {
		return &ChargeResult{Approved: false, Retryable: d.retryable, FailureReason: d.reason}, nil
	}
	return &ChargeResult{Approved: true}, nil
}
