// ABOUTME: Typed push-protocol operations layered over a Transport.
// ABOUTME: Each method builds one request body and decodes the response where it matters.

package push

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publish metadata attached to rich content events.
const (
	MetadataExternalID = "ExternalId"
	richContentCardID  = "BOTBRIDGE_CARD"
)

// Conversation field names used by UpdateConversationField.
const (
	FieldParticipantsChange = "ParticipantsChange"
	FieldSkill              = "Skill"
	RoleAssignedAgent       = "ASSIGNED_AGENT"
)

// ConversationField is one change in an UpdateConversationField request.
type ConversationField struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Role  string `json:"role,omitempty"`
	Skill string `json:"skill,omitempty"`
}

// PublishMetadata annotates a published event.
type PublishMetadata struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Client issues push-protocol operations on behalf of one agent.
type Client struct {
	transport Transport
	agentID   string
}

// NewClient binds a transport to an agent identity.
func NewClient(t Transport, agentID string) *Client {
	return &Client{transport: t, agentID: agentID}
}

// AgentID returns the agent identity requests are made for.
func (c *Client) AgentID() string { return c.agentID }

// SetAgentState sets the agent's backend availability.
func (c *Client) SetAgentState(ctx context.Context, availability string) error {
	return c.transport.Request(ctx, OpSetAgentState, map[string]any{
		"agentUserId":  c.agentID,
		"availability": availability,
	}, nil)
}

// SubscribeConversations subscribes to this agent's open conversations.
func (c *Client) SubscribeConversations(ctx context.Context) error {
	return c.transport.Request(ctx, OpSubscribeExConversations, map[string]any{
		"agentIds":  []string{c.agentID},
		"convState": []string{"OPEN"},
	}, nil)
}

// SubscribeRoutingTasks subscribes to routing offers.
func (c *Client) SubscribeRoutingTasks(ctx context.Context) error {
	return c.transport.Request(ctx, OpSubscribeRoutingTasks, map[string]any{}, nil)
}

// AcceptRing accepts a routing offer.
func (c *Client) AcceptRing(ctx context.Context, ringID string) error {
	return c.transport.Request(ctx, OpUpdateRingState, map[string]any{
		"ringId":    ringID,
		"ringState": RingAccepted,
	}, nil)
}

// SubscribeMessages subscribes to message events of one conversation.
func (c *Client) SubscribeMessages(ctx context.Context, conversationID string) error {
	return c.transport.Request(ctx, OpSubscribeMessagingEvents, map[string]any{
		"dialogId": conversationID,
	}, nil)
}

// Publish sends an event into a conversation. Rich content events carry an external id.
func (c *Client) Publish(ctx context.Context, conversationID string, ev Event) error {
	body := map[string]any{
		"dialogId": conversationID,
		"event":    ev,
	}
	if ev.Type == EventRichContent {
		body["metadata"] = []PublishMetadata{{Type: MetadataExternalID, ID: richContentCardID}}
	}
	return c.transport.Request(ctx, OpPublishEvent, body, nil)
}

// UserProfile fetches the profile records of a consumer.
func (c *Client) UserProfile(ctx context.Context, userID string) ([]Profile, error) {
	var raw json.RawMessage
	if err := c.transport.Request(ctx, OpGetUserProfile, map[string]any{"userId": userID}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var profiles []Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}
	return profiles, nil
}

// UpdateConversationField applies field changes to a conversation.
func (c *Client) UpdateConversationField(ctx context.Context, conversationID string, fields ...ConversationField) error {
	return c.transport.Request(ctx, OpUpdateConversationField, map[string]any{
		"conversationId":    conversationID,
		"conversationField": fields,
	}, nil)
}

// TransferToSkill removes this agent from a conversation and routes it to another skill.
func (c *Client) TransferToSkill(ctx context.Context, conversationID, skillID string) error {
	return c.UpdateConversationField(ctx, conversationID,
		ConversationField{Field: FieldParticipantsChange, Type: "REMOVE", Role: RoleAssignedAgent},
		ConversationField{Field: FieldSkill, Type: "UPDATE", Skill: skillID},
	)
}

// Clock requests the server clock. It doubles as the connection heartbeat.
func (c *Client) Clock(ctx context.Context) (int64, error) {
	var out struct {
		CurrentTime int64 `json:"currentTime"`
	}
	if err := c.transport.Request(ctx, OpGetClock, map[string]any{}, &out); err != nil {
		return 0, err
	}
	return out.CurrentTime, nil
}
