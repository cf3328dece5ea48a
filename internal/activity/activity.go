// ABOUTME: Generic Activity exchanged with conversational logic on both protocols
// ABOUTME: JSON shape matches the turn protocol so inbound HTTP bodies decode directly

package activity

import (
	"encoding/json"
	"fmt"
)

// Activity types.
const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
)

// Attachment layouts.
const (
	LayoutList     = "list"
	LayoutCarousel = "carousel"
)

// Attachment content types understood by the translator.
const (
	ContentTypeAdaptiveCard = "application/vnd.microsoft.card.adaptive"
	ContentTypeHeroCard     = "application/vnd.microsoft.card.hero"
)

// ChannelAccount identifies a participant on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ConversationAccount identifies a conversation.
type ConversationAccount struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
}

// Activity is one inbound or outbound conversational message.
type Activity struct {
	Type             string              `json:"type"`
	ID               string              `json:"id,omitempty"`
	Text             string              `json:"text,omitempty"`
	Attachments      []Attachment        `json:"attachments,omitempty"`
	AttachmentLayout string              `json:"attachmentLayout,omitempty"`
	SuggestedActions *SuggestedActions   `json:"suggestedActions,omitempty"`
	Conversation     ConversationAccount `json:"conversation"`
	From             *ChannelAccount     `json:"from,omitempty"`
	Recipient        *ChannelAccount     `json:"recipient,omitempty"`
	ChannelData      *ChannelAccount     `json:"channelData,omitempty"`
	ChannelID        string              `json:"channelId"`
	ServiceURL       string              `json:"serviceUrl,omitempty"`
	ReplyToID        string              `json:"replyToId,omitempty"`
}

// SenderID returns the id of the participant that produced the activity, or "".
func (a *Activity) SenderID() string {
	if a.From == nil {
		return ""
	}
	return a.From.ID
}

// ConversationID returns the id of the conversation the activity belongs to.
func (a *Activity) ConversationID() string {
	return a.Conversation.ID
}

// Reply builds an outbound message activity addressed back to the sender of a.
func (a *Activity) Reply(text string) *Activity {
	return &Activity{
		Type:         TypeMessage,
		Text:         text,
		Conversation: a.Conversation,
		From:         a.Recipient,
		Recipient:    a.From,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
		ReplyToID:    a.ID,
	}
}

// SuggestedActions are quick replies offered with a message.
type SuggestedActions struct {
	To      []string     `json:"to,omitempty"`
	Actions []CardAction `json:"actions"`
}

// Attachment is a card or media item carried by an activity.
type Attachment struct {
	ContentType string          `json:"contentType"`
	Content     json.RawMessage `json:"content,omitempty"`
	ContentURL  string          `json:"contentUrl,omitempty"`
	Name        string          `json:"name,omitempty"`
}

// DecodeContent unmarshals the attachment content into v.
func (a Attachment) DecodeContent(v any) error {
	if len(a.Content) == 0 {
		return fmt.Errorf("attachment %q has no content", a.ContentType)
	}
	if err := json.Unmarshal(a.Content, v); err != nil {
		return fmt.Errorf("decoding %s content: %w", a.ContentType, err)
	}
	return nil
}

// NewAttachment encodes content as an attachment of the given content type.
func NewAttachment(contentType string, content any) (Attachment, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return Attachment{}, fmt.Errorf("encoding %s content: %w", contentType, err)
	}
	return Attachment{ContentType: contentType, Content: raw}, nil
}
