// ABOUTME: Tests for Activity JSON decoding and card action property preservation.
// ABOUTME: Covers the turn-protocol body shape and reply addressing.

package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity_DecodeTurnBody(t *testing.T) {
	body := `{
		"type": "message",
		"id": "act-1",
		"text": "hello",
		"conversation": {"id": "conv-1"},
		"from": {"id": "user-1", "name": "Ada"},
		"recipient": {"id": "bot-1"},
		"channelId": "webchat",
		"serviceUrl": "https://smba.example"
	}`

	var act Activity
	require.NoError(t, json.Unmarshal([]byte(body), &act))

	assert.Equal(t, TypeMessage, act.Type)
	assert.Equal(t, "hello", act.Text)
	assert.Equal(t, "conv-1", act.ConversationID())
	assert.Equal(t, "user-1", act.SenderID())
}

func TestActivity_Reply(t *testing.T) {
	in := &Activity{
		Type:         TypeMessage,
		ID:           "act-1",
		Conversation: ConversationAccount{ID: "conv-1"},
		From:         &ChannelAccount{ID: "user-1"},
		Recipient:    &ChannelAccount{ID: "bot-1"},
		ChannelID:    "webchat",
	}

	out := in.Reply("hi back")

	assert.Equal(t, "hi back", out.Text)
	assert.Equal(t, "conv-1", out.ConversationID())
	assert.Equal(t, "bot-1", out.SenderID())
	assert.Equal(t, "user-1", out.Recipient.ID)
	assert.Equal(t, "act-1", out.ReplyToID)
}

func TestActivity_SenderIDWithoutFrom(t *testing.T) {
	assert.Equal(t, "", (&Activity{}).SenderID())
}

func TestCardAction_PreservesUnknownProperties(t *testing.T) {
	var action CardAction
	err := json.Unmarshal([]byte(`{"type":"Action.Submit","title":"Buy","value":"buy","id":"btn-1","style":"positive"}`), &action)
	require.NoError(t, err)

	assert.Equal(t, "Action.Submit", action.Type)
	assert.Equal(t, "Buy", action.Title)
	assert.Equal(t, "buy", action.ValueString())
	assert.Equal(t, map[string]any{"id": "btn-1", "style": "positive"}, action.Extra)
	assert.Equal(t, map[string]any{"id": "btn-1", "style": "positive", "value": "buy"}, action.Metadata())

	data, err := json.Marshal(action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Action.Submit","title":"Buy","value":"buy","id":"btn-1","style":"positive"}`, string(data))
}

func TestCardAction_MetadataEmpty(t *testing.T) {
	var action CardAction
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Action.OpenUrl","title":"Docs","url":"https://x"}`), &action))

	assert.Nil(t, action.Metadata())
	assert.Equal(t, "https://x", action.URL)
}

func TestCardAction_ValueStringNonString(t *testing.T) {
	action := CardAction{Value: map[string]any{"choice": 1}}
	assert.Equal(t, `{"choice":1}`, action.ValueString())
}

func TestAttachment_DecodeContent(t *testing.T) {
	att, err := NewAttachment(ContentTypeHeroCard, HeroCard{Title: "Pick one"})
	require.NoError(t, err)

	var card HeroCard
	require.NoError(t, att.DecodeContent(&card))
	assert.Equal(t, "Pick one", card.Title)

	empty := Attachment{ContentType: ContentTypeHeroCard}
	assert.Error(t, empty.DecodeContent(&card))
}
