package transfer

import (
	"sync"

	"github.com/google/uuid"

	domainTransfer "github.com/lumenbank/transfers/internal/domain/transfer"
)

// Registry hands out one orchestrator per source account so concurrent
// submissions against the same funds hit the same in-flight guard. A
// terminal attempt is reset before reuse; an in-flight one is returned
// as-is, letting the orchestrator reject the overlapping submit.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	attempts map[uuid.UUID]*Orchestrator
}

// NewRegistry creates an empty registry over shared dependencies.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		attempts: make(map[uuid.UUID]*Orchestrator),
	}
}

// Acquire returns the orchestrator for the source account, creating one on
// first use and resetting it when the previous attempt reached a terminal
// state. Reset refuses while a submission is in flight, in which case the
// live orchestrator is returned unchanged.
func (r *Registry) Acquire(sourceAccountID uuid.UUID) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.attempts[sourceAccountID]
	if !ok {
		o = NewOrchestrator(r.deps)
		r.attempts[sourceAccountID] = o
		return o
	}

	if domainTransfer.IsTerminal(o.State()) {
		_ = o.Reset()
	}
	return o
}

// NewAttempt returns a standalone orchestrator that is not tracked by the
// registry. Used for resolution-only flows that have no source account yet.
func (r *Registry) NewAttempt() *Orchestrator {
	return NewOrchestrator(r.deps)
}

// Peek returns the orchestrator for the source account without creating
// one. Nil when no attempt has been started.
func (r *Registry) Peek(sourceAccountID uuid.UUID) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[sourceAccountID]
}
