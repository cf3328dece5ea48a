// ABOUTME: In-memory Store implementation for tests and database-less runs
// ABOUTME: Safe for concurrent use

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*ConversationState // keyed by "protocol:conversationID"
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*ConversationState)}
}

func stateKey(protocol, conversationID string) string {
	return protocol + ":" + conversationID
}

// GetConversationState implements Store.
func (m *MemoryStore) GetConversationState(_ context.Context, protocol, conversationID string) (*ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[stateKey(protocol, conversationID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// IncrementTurnCount implements Store.
func (m *MemoryStore) IncrementTurnCount(_ context.Context, protocol, conversationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(protocol, conversationID)
	st, ok := m.states[key]
	if !ok {
		st = &ConversationState{Protocol: protocol, ConversationID: conversationID}
		m.states[key] = st
	}
	st.TurnCount++
	st.UpdatedAt = time.Now().UTC()
	return st.TurnCount, nil
}

// ClearConversationState implements Store.
func (m *MemoryStore) ClearConversationState(_ context.Context, protocol, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, stateKey(protocol, conversationID))
	return nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
