// ABOUTME: TurnContext carries one inbound activity and routes replies to the right protocol.
// ABOUTME: Senders are registered per protocol in a Set; optional capabilities are probed.

package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/botbridge/internal/activity"
)

// Sender delivers outbound activities over one protocol.
type Sender interface {
	Protocol() Protocol
	Send(ctx context.Context, act *activity.Activity) error
}

// Updater is implemented by senders that can change or retract delivered activities.
type Updater interface {
	UpdateActivity(ctx context.Context, act *activity.Activity) error
	DeleteActivity(ctx context.Context, conversationID, activityID string) error
}

// Set routes sends to the Sender registered for a destination protocol.
type Set struct {
	mu      sync.RWMutex
	senders map[Protocol]Sender
}

// NewSet creates a Set holding senders.
func NewSet(senders ...Sender) *Set {
	s := &Set{senders: make(map[Protocol]Sender)}
	for _, sender := range senders {
		s.Register(sender)
	}
	return s
}

// Register adds or replaces the sender for its protocol.
func (s *Set) Register(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senders[sender.Protocol()] = sender
}

// Get returns the sender for a protocol.
func (s *Set) Get(p Protocol) (Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sender, ok := s.senders[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, p)
	}
	return sender, nil
}

// Send delivers act over the destination protocol.
func (s *Set) Send(ctx context.Context, act *activity.Activity, dest Protocol) error {
	sender, err := s.Get(dest)
	if err != nil {
		return err
	}
	return sender.Send(ctx, act)
}

// TurnContext is one turn of conversation: the inbound activity plus everything sent in
// reply during the turn.
type TurnContext struct {
	Activity *activity.Activity
	Protocol Protocol

	senders *Set

	mu   sync.Mutex
	sent []*activity.Activity
}

// NewTurnContext creates a turn for act arriving over p.
func NewTurnContext(act *activity.Activity, p Protocol, senders *Set) *TurnContext {
	return &TurnContext{Activity: act, Protocol: p, senders: senders}
}

// SendActivity sends act back over the turn's protocol. Missing addressing is filled
// from the inbound activity.
func (tc *TurnContext) SendActivity(ctx context.Context, act *activity.Activity) error {
	if act == nil {
		return ErrNilActivity
	}
	if act.Type == "" {
		act.Type = activity.TypeMessage
	}
	if act.ID == "" {
		act.ID = uuid.NewString()
	}
	if act.Conversation.ID == "" {
		act.Conversation = tc.Activity.Conversation
	}
	if act.ChannelID == "" {
		act.ChannelID = tc.Activity.ChannelID
	}
	if act.Recipient == nil {
		act.Recipient = tc.Activity.From
	}
	if act.ReplyToID == "" {
		act.ReplyToID = tc.Activity.ID
	}

	if err := tc.senders.Send(ctx, act, tc.Protocol); err != nil {
		return err
	}

	tc.mu.Lock()
	tc.sent = append(tc.sent, act)
	tc.mu.Unlock()
	return nil
}

// SendText sends a plain text reply.
func (tc *TurnContext) SendText(ctx context.Context, text string) error {
	return tc.SendActivity(ctx, tc.Activity.Reply(text))
}

// Sent returns the activities sent during this turn, in order.
func (tc *TurnContext) Sent() []*activity.Activity {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make([]*activity.Activity, len(tc.sent))
	copy(out, tc.sent)
	return out
}

// UpdateActivity replaces a delivered activity if the protocol supports it.
func (tc *TurnContext) UpdateActivity(ctx context.Context, act *activity.Activity) error {
	u, err := tc.updater()
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return u.UpdateActivity(ctx, act)
}

// DeleteActivity retracts a delivered activity if the protocol supports it.
func (tc *TurnContext) DeleteActivity(ctx context.Context, activityID string) error {
	u, err := tc.updater()
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return u.DeleteActivity(ctx, tc.Activity.ConversationID(), activityID)
}

func (tc *TurnContext) updater() (Updater, error) {
	sender, err := tc.senders.Get(tc.Protocol)
	if err != nil {
		return nil, err
	}
	u, ok := sender.(Updater)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, tc.Protocol.DisplayName())
	}
	return u, nil
}
