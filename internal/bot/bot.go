// ABOUTME: Conversational logic shared by both protocols: a counting echo bot with a card
// ABOUTME: command, a push-only transfer command, and the turn error handler.

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/adapter"
	"github.com/2389/botbridge/internal/store"
)

// ErrorReply is sent when a turn fails.
const ErrorReply = "Oops. Something went wrong!"

const (
	cardCommand     = "card"
	transferCommand = "transfer"
)

// Transferer hands a conversation to another skill.
type Transferer interface {
	TransferToSkill(ctx context.Context, conversationID, skillID string) error
}

// Bot is the conversational logic behind both adapters.
type Bot struct {
	store      store.Store
	transferer Transferer
	logger     *slog.Logger
}

// New creates a Bot. transferer may be nil when the push protocol is disabled.
func New(s store.Store, transferer Transferer, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{store: s, transferer: transferer, logger: logger.With("component", "bot")}
}

// OnTurn handles one inbound activity.
func (b *Bot) OnTurn(ctx context.Context, tc *adapter.TurnContext) error {
	act := tc.Activity
	via := tc.Protocol.DisplayName()

	if act.Type != activity.TypeMessage {
		return tc.SendText(ctx, fmt.Sprintf("[%s event detected via %s]", act.Type, via))
	}

	count, err := b.store.IncrementTurnCount(ctx, string(tc.Protocol), act.ConversationID())
	if err != nil {
		return fmt.Errorf("count turn: %w", err)
	}

	text := strings.TrimSpace(act.Text)
	switch {
	case text == cardCommand:
		reply, err := choiceCard(act)
		if err != nil {
			return err
		}
		return tc.SendActivity(ctx, reply)
	case strings.HasPrefix(text, transferCommand+" "):
		return b.transfer(ctx, tc, strings.TrimSpace(strings.TrimPrefix(text, transferCommand)))
	default:
		return tc.SendText(ctx, fmt.Sprintf("%d: You said via %s: \"%s\"", count, via, act.Text))
	}
}

func (b *Bot) transfer(ctx context.Context, tc *adapter.TurnContext, skillID string) error {
	if tc.Protocol != adapter.ProtocolPush || b.transferer == nil {
		return tc.SendText(ctx, "Transfer is only available via "+adapter.ProtocolPush.DisplayName())
	}
	if err := tc.SendText(ctx, "Transferring you to "+skillID); err != nil {
		return err
	}
	return b.transferer.TransferToSkill(ctx, tc.Activity.ConversationID(), skillID)
}

// OnTurnError apologises to the user and clears the conversation's state.
func (b *Bot) OnTurnError(ctx context.Context, tc *adapter.TurnContext, turnErr error) error {
	b.logger.Error("unhandled turn error",
		"protocol", tc.Protocol,
		"conversation_id", tc.Activity.ConversationID(),
		"error", turnErr,
	)

	var errs []error
	if err := tc.SendText(ctx, ErrorReply); err != nil {
		errs = append(errs, fmt.Errorf("send error reply: %w", err))
	}
	if err := b.store.ClearConversationState(ctx, string(tc.Protocol), tc.Activity.ConversationID()); err != nil {
		errs = append(errs, fmt.Errorf("clear state: %w", err))
	}
	return errors.Join(errs...)
}

// choiceCard builds the hero card offered by the card command.
func choiceCard(in *activity.Activity) (*activity.Activity, error) {
	buttons := make([]activity.CardAction, 0, 3)
	for i, title := range []string{"1. Inline Attachment", "2. Internet Attachment", "3. Uploaded Attachment"} {
		n := fmt.Sprint(i + 1)
		buttons = append(buttons, activity.CardAction{
			Type:  activity.ActionImBack,
			Title: title,
			Value: n,
			Extra: map[string]any{"id": "button_id_" + n},
		})
	}

	att, err := activity.NewAttachment(activity.ContentTypeHeroCard, activity.HeroCard{
		Title:   "Text",
		Text:    "You can upload an image or select one of the following choices.",
		Buttons: buttons,
	})
	if err != nil {
		return nil, fmt.Errorf("build card: %w", err)
	}

	reply := in.Reply("")
	reply.Attachments = []activity.Attachment{att}
	return reply, nil
}
