// ABOUTME: Store interface and conversation state type shared by the SQLite and memory stores
// ABOUTME: Conversations are keyed by (protocol, conversation id)

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ConversationState is the persisted state of one conversation.
type ConversationState struct {
	Protocol       string
	ConversationID string
	TurnCount      int
	UpdatedAt      time.Time
}

// Store persists conversation state.
type Store interface {
	// GetConversationState returns ErrNotFound for conversations never seen.
	GetConversationState(ctx context.Context, protocol, conversationID string) (*ConversationState, error)
	// IncrementTurnCount adds one turn and returns the new count.
	IncrementTurnCount(ctx context.Context, protocol, conversationID string) (int, error)
	// ClearConversationState forgets a conversation. Clearing an unknown one is not an error.
	ClearConversationState(ctx context.Context, protocol, conversationID string) error
	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error
	Close() error
}
