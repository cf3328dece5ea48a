// ABOUTME: Push protocol adapter: runs reconciled inbound activities through the pipeline
// ABOUTME: and publishes replies, translated to push events, over the live connection.

package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/metrics"
	"github.com/2389/botbridge/internal/push"
	"github.com/2389/botbridge/internal/translate"
)

// PushAdapter serves the push protocol.
type PushAdapter struct {
	client   *push.Client
	senders  *Set
	pipeline *Pipeline
	handler  Handler
	metrics  *metrics.Collectors
	logger   *slog.Logger
}

// NewPushAdapter creates the adapter and registers it as the push protocol's sender.
func NewPushAdapter(client *push.Client, senders *Set, pipeline *Pipeline, handler Handler, m *metrics.Collectors, logger *slog.Logger) *PushAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &PushAdapter{
		client:   client,
		senders:  senders,
		pipeline: pipeline,
		handler:  handler,
		metrics:  m,
		logger:   logger.With("component", "push-adapter"),
	}
	senders.Register(a)
	return a
}

// Protocol implements Sender.
func (a *PushAdapter) Protocol() Protocol { return ProtocolPush }

// Send translates act and publishes it into its conversation. It does not retry; a
// missing connection fails immediately with push.ErrNotConnected.
func (a *PushAdapter) Send(ctx context.Context, act *activity.Activity) error {
	if act == nil {
		return fmt.Errorf("push send: %w", ErrNilActivity)
	}
	convID := act.ConversationID()
	if convID == "" {
		return errors.New("push send: activity has no conversation id")
	}

	ev, err := translate.ToPushEvent(act)
	if err != nil {
		return fmt.Errorf("push send: %w", err)
	}

	err = a.client.Publish(ctx, convID, ev)
	a.metrics.Published(ev.Type, err)
	if err != nil {
		a.logger.Warn("publish failed", "conversation_id", convID, "event", ev.Type, "error", err)
		return fmt.Errorf("push send: %w", err)
	}
	return nil
}

// TransferToSkill hands a conversation over to agents with another skill.
func (a *PushAdapter) TransferToSkill(ctx context.Context, conversationID, skillID string) error {
	if err := a.client.TransferToSkill(ctx, conversationID, skillID); err != nil {
		return fmt.Errorf("transfer %s to skill %s: %w", conversationID, skillID, err)
	}
	a.logger.Info("conversation transferred", "conversation_id", conversationID, "skill_id", skillID)
	return nil
}

// Receive runs one reconciled inbound activity as a turn. It has the registry listener's
// signature and logs rather than returns failures.
func (a *PushAdapter) Receive(ctx context.Context, act *activity.Activity) {
	tc := NewTurnContext(act, ProtocolPush, a.senders)
	if err := a.pipeline.Run(ctx, tc, a.handler); err != nil {
		a.logger.Error("turn failed", "conversation_id", act.ConversationID(), "error", err)
	}
}
