package identitylink

import (
	"errors"
	"sync"
	"time"

	"github.com/ottshare/party-api/internal/domain"
)

var (
	errFlowNotFound = errors.New("flow not found")
	errFlowState    = errors.New("flow state mismatch")
)

// flow is the transient state of one certification transaction. It lives only
// in process memory: the receipt carries the attested phone and CI, and
// neither may be persisted or logged.
type flow struct {
	state    domain.LinkState
	pending  domain.PendingSocialIdentity
	receipt  *domain.CertificationReceipt
	deadline time.Time
}

// registry holds in-flight link flows keyed by certification transaction id.
// Expired entries are dropped lazily on access.
type registry struct {
	mu    sync.Mutex
	ttl   time.Duration
	flows map[string]*flow
	now   func() time.Time
}

func newRegistry(ttl time.Duration) *registry {
	return &registry{ttl: ttl, flows: make(map[string]*flow), now: time.Now}
}

func (r *registry) put(txID string, f *flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.deadline = r.now().Add(r.ttl)
	r.flows[txID] = f
}

// get returns a copy of the live flow for txID, dropping it first if expired.
// The shared *flow never leaves the registry lock.
func (r *registry) get(txID string) (flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.live(txID)
	if !ok {
		return flow{}, false
	}
	return *f, true
}

// transition advances txID's flow from one state to the next in a single
// critical section and returns a copy of the advanced flow. Concurrent callers
// racing on the same transaction see errFlowState once the first one wins.
func (r *registry) transition(txID string, from, to domain.LinkState, mutate func(*flow)) (flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.live(txID)
	if !ok {
		return flow{}, errFlowNotFound
	}
	if f.state != from {
		return flow{}, errFlowState
	}
	if mutate != nil {
		mutate(f)
	}
	f.state = to
	return *f, nil
}

// live resolves txID to its flow, expiring it in place. Callers hold r.mu.
func (r *registry) live(txID string) (*flow, bool) {
	f, ok := r.flows[txID]
	if !ok {
		return nil, false
	}
	if r.now().After(f.deadline) {
		delete(r.flows, txID)
		return nil, false
	}
	return f, true
}

func (r *registry) remove(txID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, txID)
}

// sweep removes every expired flow and returns the identities whose
// single-flight guards should be released.
func (r *registry) sweep() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	now := r.now()
	for txID, f := range r.flows {
		if now.After(f.deadline) {
			keys = append(keys, f.pending.Key())
			delete(r.flows, txID)
		}
	}
	return keys
}
