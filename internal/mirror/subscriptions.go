package mirror

import (
	"context"
	"sync"
)

// SubscriptionManager tracks per-key cancellation scopes for live mirror
// consumers (one per screen or account view). Subscribing twice with the
// same key cancels the earlier scope first.
type SubscriptionManager struct {
	parent context.Context

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	cancel context.CancelFunc
}

// NewSubscriptionManager creates a manager whose subscriptions are all
// children of parent.
func NewSubscriptionManager(parent context.Context) *SubscriptionManager {
	return &SubscriptionManager{
		parent: parent,
		subs:   make(map[string]*subscription),
	}
}

// Subscribe registers key and returns a context that stays live until the
// returned release func is called, the key is resubscribed or unsubscribed,
// StopAll is called, or the parent is cancelled. The release func is safe to
// call after the subscription has been replaced: it never tears down a newer
// subscription for the same key.
func (m *SubscriptionManager) Subscribe(key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(m.parent)
	sub := &subscription{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.subs[key]; ok {
		prev.cancel()
	}
	m.subs[key] = sub
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		if cur, ok := m.subs[key]; ok && cur == sub {
			delete(m.subs, key)
		}
		m.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// Unsubscribe cancels the subscription for key, if any.
func (m *SubscriptionManager) Unsubscribe(key string) {
	m.mu.Lock()
	sub, ok := m.subs[key]
	if ok {
		delete(m.subs, key)
	}
	m.mu.Unlock()

	if ok {
		sub.cancel()
	}
}

// StopAll cancels every active subscription. Used on shutdown and logout.
func (m *SubscriptionManager) StopAll() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.subs))
	for _, sub := range m.subs {
		cancels = append(cancels, sub.cancel)
	}
	m.subs = make(map[string]*subscription)
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Active returns the number of live subscriptions.
func (m *SubscriptionManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
