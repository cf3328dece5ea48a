// ABOUTME: Tests for the bot's replies on both protocols and its turn error handler.
// ABOUTME: Turn replies are read from the TurnContext; push replies from the mock transport.

package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/adapter"
	"github.com/2389/botbridge/internal/push"
	"github.com/2389/botbridge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingStore struct{ store.MemoryStore }

func (*failingStore) IncrementTurnCount(context.Context, string, string) (int, error) {
	return 0, errors.New("disk full")
}

func turnContext(b *Bot, act *activity.Activity) *adapter.TurnContext {
	set := adapter.NewSet()
	adapter.NewTurnAdapter(set, adapter.NewPipeline(), b.OnTurn, nil, testLogger())
	return adapter.NewTurnContext(act, adapter.ProtocolTurn, set)
}

func message(conv, text string) *activity.Activity {
	return &activity.Activity{
		Type:         activity.TypeMessage,
		Text:         text,
		Conversation: activity.ConversationAccount{ID: conv},
		ChannelID:    "emulator",
	}
}

func TestBot_EchoCounts(t *testing.T) {
	b := New(store.NewMemoryStore(), nil, testLogger())
	ctx := context.Background()

	tc := turnContext(b, message("c1", "hello"))
	require.NoError(t, b.OnTurn(ctx, tc))
	tc2 := turnContext(b, message("c1", "again"))
	require.NoError(t, b.OnTurn(ctx, tc2))
	other := turnContext(b, message("c2", "elsewhere"))
	require.NoError(t, b.OnTurn(ctx, other))

	assert.Equal(t, `1: You said via Bot Framework connector: "hello"`, tc.Sent()[0].Text)
	assert.Equal(t, `2: You said via Bot Framework connector: "again"`, tc2.Sent()[0].Text)
	assert.Equal(t, `1: You said via Bot Framework connector: "elsewhere"`, other.Sent()[0].Text)
}

func TestBot_Card(t *testing.T) {
	b := New(store.NewMemoryStore(), nil, testLogger())
	tc := turnContext(b, message("c1", "card"))

	require.NoError(t, b.OnTurn(context.Background(), tc))

	sent := tc.Sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, activity.ContentTypeHeroCard, sent[0].Attachments[0].ContentType)

	var card activity.HeroCard
	require.NoError(t, sent[0].Attachments[0].DecodeContent(&card))
	assert.Equal(t, "Text", card.Title)
	require.Len(t, card.Buttons, 3)
	assert.Equal(t, activity.ActionImBack, card.Buttons[0].Type)
	assert.Equal(t, "2", card.Buttons[1].ValueString())
	assert.Equal(t, "button_id_3", card.Buttons[2].Extra["id"])
}

func TestBot_NonMessage(t *testing.T) {
	b := New(store.NewMemoryStore(), nil, testLogger())
	act := message("c1", "")
	act.Type = activity.TypeConversationUpdate
	tc := turnContext(b, act)

	require.NoError(t, b.OnTurn(context.Background(), tc))

	assert.Equal(t, "[conversationUpdate event detected via Bot Framework connector]", tc.Sent()[0].Text)
}

func TestBot_TransferOnTurnProtocol(t *testing.T) {
	b := New(store.NewMemoryStore(), nil, testLogger())
	tc := turnContext(b, message("c1", "transfer billing"))

	require.NoError(t, b.OnTurn(context.Background(), tc))

	assert.Equal(t, "Transfer is only available via LivePerson", tc.Sent()[0].Text)
}

func TestBot_OverPush(t *testing.T) {
	m := push.NewMockTransport()
	require.NoError(t, m.Connect(context.Background()))
	client := push.NewClient(m, "agent-1")

	set := adapter.NewSet()
	var pa *adapter.PushAdapter
	b := New(store.NewMemoryStore(), transfererFunc(func(ctx context.Context, conv, skill string) error {
		return pa.TransferToSkill(ctx, conv, skill)
	}), testLogger())
	pa = adapter.NewPushAdapter(client, set, adapter.NewPipeline(), b.OnTurn, nil, testLogger())

	pa.Receive(context.Background(), &activity.Activity{
		Type:         activity.TypeMessage,
		Text:         "hi",
		Conversation: activity.ConversationAccount{ID: "c1"},
		ChannelID:    "liveperson",
	})
	pa.Receive(context.Background(), &activity.Activity{
		Type:         activity.TypeMessage,
		Text:         "transfer billing",
		Conversation: activity.ConversationAccount{ID: "c1"},
		ChannelID:    "liveperson",
	})

	pubs := m.RequestsFor(push.OpPublishEvent)
	require.Len(t, pubs, 2)
	assert.Contains(t, string(pubs[0].Body), `1: You said via LivePerson: \"hi\"`)
	assert.Contains(t, string(pubs[1].Body), "Transferring you to billing")
	require.Len(t, m.RequestsFor(push.OpUpdateConversationField), 1)
}

type transfererFunc func(ctx context.Context, conversationID, skillID string) error

func (f transfererFunc) TransferToSkill(ctx context.Context, conversationID, skillID string) error {
	return f(ctx, conversationID, skillID)
}

func TestBot_StoreFailureIsTurnError(t *testing.T) {
	b := New(&failingStore{}, nil, testLogger())
	tc := turnContext(b, message("c1", "hi"))

	err := b.OnTurn(context.Background(), tc)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestBot_OnTurnError(t *testing.T) {
	s := store.NewMemoryStore()
	b := New(s, nil, testLogger())
	ctx := context.Background()

	_, err := s.IncrementTurnCount(ctx, string(adapter.ProtocolTurn), "c1")
	require.NoError(t, err)

	tc := turnContext(b, message("c1", "hi"))
	require.NoError(t, b.OnTurnError(ctx, tc, errors.New("boom")))

	assert.Equal(t, ErrorReply, tc.Sent()[0].Text)
	_, err = s.GetConversationState(ctx, string(adapter.ProtocolTurn), "c1")
	assert.True(t, errors.Is(err, store.ErrNotFound), "state is cleared")
}

func TestBot_PipelineRecoversWithErrorHandler(t *testing.T) {
	b := New(&failingStore{}, nil, testLogger())
	set := adapter.NewSet()
	pipeline := adapter.NewPipeline().OnTurnError(b.OnTurnError)
	adapter.NewTurnAdapter(set, pipeline, b.OnTurn, nil, testLogger())
	tc := adapter.NewTurnContext(message("c1", "hi"), adapter.ProtocolTurn, set)

	require.NoError(t, pipeline.Run(context.Background(), tc, b.OnTurn))

	require.Len(t, tc.Sent(), 1)
	assert.Equal(t, ErrorReply, tc.Sent()[0].Text)
}
