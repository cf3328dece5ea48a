// ABOUTME: Tests for the typed push client against MockTransport.
// ABOUTME: Verifies request bodies, profile decoding and the transfer field changes.

package push

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/2389/botbridge/internal/richcontent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedMock(t *testing.T) *MockTransport {
	t.Helper()
	m := NewMockTransport()
	require.NoError(t, m.Connect(context.Background()))
	return m
}

func TestClient_RequestBodies(t *testing.T) {
	m := connectedMock(t)
	c := NewClient(m, "agent-7")
	ctx := context.Background()

	require.NoError(t, c.SetAgentState(ctx, AvailabilityOnline))
	require.NoError(t, c.SubscribeConversations(ctx))
	require.NoError(t, c.SubscribeRoutingTasks(ctx))
	require.NoError(t, c.AcceptRing(ctx, "ring-1"))
	require.NoError(t, c.SubscribeMessages(ctx, "conv-1"))

	reqs := m.Requests()
	require.Len(t, reqs, 5)

	assert.Equal(t, OpSetAgentState, reqs[0].Op)
	assert.JSONEq(t, `{"agentUserId":"agent-7","availability":"ONLINE"}`, string(reqs[0].Body))
	assert.JSONEq(t, `{"agentIds":["agent-7"],"convState":["OPEN"]}`, string(reqs[1].Body))
	assert.JSONEq(t, `{}`, string(reqs[2].Body))
	assert.JSONEq(t, `{"ringId":"ring-1","ringState":"ACCEPTED"}`, string(reqs[3].Body))
	assert.JSONEq(t, `{"dialogId":"conv-1"}`, string(reqs[4].Body))
}

func TestClient_PublishText(t *testing.T) {
	m := connectedMock(t)
	c := NewClient(m, "agent-7")

	require.NoError(t, c.Publish(context.Background(), "conv-1", TextEvent("hi")))

	reqs := m.RequestsFor(OpPublishEvent)
	require.Len(t, reqs, 1)
	assert.JSONEq(t,
		`{"dialogId":"conv-1","event":{"type":"ContentEvent","contentType":"text/plain","message":"hi"}}`,
		string(reqs[0].Body))
}

func TestClient_PublishRichContentCarriesMetadata(t *testing.T) {
	m := connectedMock(t)
	c := NewClient(m, "agent-7")

	card := richcontent.NewCard(richcontent.Text{Text: "hello"})
	require.NoError(t, c.Publish(context.Background(), "conv-1", Event{Type: EventRichContent, Content: card}))

	reqs := m.RequestsFor(OpPublishEvent)
	require.Len(t, reqs, 1)

	var body struct {
		Metadata []PublishMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	require.Len(t, body.Metadata, 1)
	assert.Equal(t, MetadataExternalID, body.Metadata[0].Type)
}

func TestClient_UserProfile(t *testing.T) {
	m := connectedMock(t)
	m.Responder = func(op string, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`[{"type":"personal","info":{}},{"type":"ctmrinfo","info":{"customerId":"cust-9"}}]`), nil
	}
	c := NewClient(m, "agent-7")

	profiles, err := c.UserProfile(context.Background(), "consumer-1")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "cust-9", CustomerID(profiles))

	reqs := m.RequestsFor(OpGetUserProfile)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"userId":"consumer-1"}`, string(reqs[0].Body))
}

func TestClient_UserProfileNull(t *testing.T) {
	m := connectedMock(t)
	m.Responder = func(string, json.RawMessage) (json.RawMessage, error) { return json.RawMessage(`null`), nil }
	c := NewClient(m, "agent-7")

	profiles, err := c.UserProfile(context.Background(), "consumer-1")
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Equal(t, "", CustomerID(profiles))
}

func TestClient_TransferToSkill(t *testing.T) {
	m := connectedMock(t)
	c := NewClient(m, "agent-7")

	require.NoError(t, c.TransferToSkill(context.Background(), "conv-1", "skill-42"))

	reqs := m.RequestsFor(OpUpdateConversationField)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{
		"conversationId": "conv-1",
		"conversationField": [
			{"field":"ParticipantsChange","type":"REMOVE","role":"ASSIGNED_AGENT"},
			{"field":"Skill","type":"UPDATE","skill":"skill-42"}
		]
	}`, string(reqs[0].Body))
}

func TestClient_Clock(t *testing.T) {
	m := connectedMock(t)
	m.Responder = func(string, json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"currentTime":42}`), nil
	}
	c := NewClient(m, "agent-7")

	ts, err := c.Clock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts)
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(NewMockTransport(), "agent-7")

	err := c.Publish(context.Background(), "conv-1", TextEvent("hi"))
	assert.True(t, errors.Is(err, ErrNotConnected))
}
