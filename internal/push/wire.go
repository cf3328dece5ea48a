// ABOUTME: Push-protocol wire frames, request operations, notifications and message events
// ABOUTME: Everything here is plain JSON data; the transport moves it, the agent interprets it

package push

import (
	"encoding/json"

	"github.com/2389/botbridge/internal/richcontent"
)

// Frame kinds.
const (
	KindRequest      = "req"
	KindResponse     = "resp"
	KindNotification = "notification"
)

// Request operations.
const (
	OpSetAgentState            = ".ams.routing.SetAgentState"
	OpSubscribeExConversations = "cqm.SubscribeExConversations"
	OpSubscribeRoutingTasks    = ".ams.routing.SubscribeRoutingTasks"
	OpUpdateRingState          = ".ams.routing.UpdateRingState"
	OpSubscribeMessagingEvents = ".ams.ms.SubscribeMessagingEvents"
	OpPublishEvent             = ".ams.ms.PublishEvent"
	OpGetUserProfile           = ".ams.userprofile.GetUserProfile"
	OpUpdateConversationField  = ".ams.cm.UpdateConversationField"
	OpGetClock                 = "GetClock"
)

// Notification types.
const (
	NotifyRoutingTask        = "routing.RoutingTaskNotification"
	NotifyConversationChange = "cqm.ExConversationChangeNotification"
	NotifyMessagingEvent     = "ms.MessagingEventNotification"
)

// Change types used by routing and conversation notifications.
const (
	ChangeUpsert = "UPSERT"
	ChangeDelete = "DELETE"
)

// Ring states.
const (
	RingWaiting  = "WAITING"
	RingAccepted = "ACCEPTED"
)

// Message event types.
const (
	EventContent      = "ContentEvent"
	EventRichContent  = "RichContentEvent"
	EventAcceptStatus = "AcceptStatusEvent"
)

// Content types and statuses.
const (
	ContentTypePlain    = "text/plain"
	StatusRead          = "READ"
	AvailabilityOnline  = "ONLINE"
	RoleConsumer        = "CONSUMER"
	ProfileCustomerInfo = "ctmrinfo"
)

// Frame is one JSON message on the push connection.
type Frame struct {
	Kind  string          `json:"kind"`
	ID    string          `json:"id,omitempty"`
	ReqID string          `json:"reqId,omitempty"`
	Type  string          `json:"type,omitempty"`
	Code  int             `json:"code,omitempty"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// RoutingTaskNotification offers rings (routing offers) to the agent.
type RoutingTaskNotification struct {
	Changes []RoutingTaskChange `json:"changes"`
}

// RoutingTaskChange is one entry of a routing notification.
type RoutingTaskChange struct {
	Type   string `json:"type"`
	Result struct {
		RingsDetails []Ring `json:"ringsDetails"`
	} `json:"result"`
}

// Ring is a single routing offer.
type Ring struct {
	RingID    string `json:"ringId"`
	RingState string `json:"ringState"`
}

// ConversationChangeNotification reports changes to the agent's open conversations.
type ConversationChangeNotification struct {
	Changes []ConversationChange `json:"changes"`
}

// ConversationChange is one UPSERT or DELETE of a conversation.
type ConversationChange struct {
	Type   string `json:"type"`
	Result struct {
		ConvID              string `json:"convId"`
		ConversationDetails struct {
			Participants []Participant `json:"participants"`
		} `json:"conversationDetails"`
	} `json:"result"`
}

// ConversationID returns the id of the changed conversation.
func (c ConversationChange) ConversationID() string { return c.Result.ConvID }

// Participants returns the participants snapshot carried by the change.
func (c ConversationChange) Participants() []Participant {
	return c.Result.ConversationDetails.Participants
}

// Participant is a member of a conversation.
type Participant struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// ConsumerID returns the id of the first consumer participant, or "".
func ConsumerID(participants []Participant) string {
	for _, p := range participants {
		if p.Role == RoleConsumer {
			return p.ID
		}
	}
	return ""
}

// MessagingEventNotification is a batch of message events for one dialog.
type MessagingEventNotification struct {
	DialogID string          `json:"dialogId"`
	Changes  []MessageChange `json:"changes"`
}

// MessageChange is a single sequenced event in a dialog.
type MessageChange struct {
	Sequence     int          `json:"sequence"`
	OriginatorID string       `json:"originatorId"`
	DialogID     string       `json:"dialogId,omitempty"`
	Event        InboundEvent `json:"event"`
}

// InboundEvent is a message event as received. Rich content bodies are kept raw.
type InboundEvent struct {
	Type         string          `json:"type"`
	ContentType  string          `json:"contentType,omitempty"`
	Message      string          `json:"message,omitempty"`
	Status       string          `json:"status,omitempty"`
	SequenceList []int           `json:"sequenceList,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
}

// Event is an outbound message event published into a dialog.
type Event struct {
	Type         string                    `json:"type"`
	ContentType  string                    `json:"contentType,omitempty"`
	Message      string                    `json:"message,omitempty"`
	QuickReplies *richcontent.QuickReplies `json:"quickReplies,omitempty"`
	Content      *richcontent.RichContent  `json:"content,omitempty"`
	Status       string                    `json:"status,omitempty"`
	SequenceList []int                     `json:"sequenceList,omitempty"`
}

// TextEvent returns a plain text content event.
func TextEvent(message string) Event {
	return Event{Type: EventContent, ContentType: ContentTypePlain, Message: message}
}

// ReadReceipt returns an accept-status event marking sequences as read.
func ReadReceipt(sequences ...int) Event {
	return Event{Type: EventAcceptStatus, Status: StatusRead, SequenceList: sequences}
}

// Delivery is a consumer message that survived reconciliation and is ready to hand off.
type Delivery struct {
	ConversationID string `json:"dialogId"`
	Sequence       int    `json:"sequence"`
	Message        string `json:"message"`
	SenderID       string `json:"originatorId"`
}

// Profile is one record of a user profile lookup.
type Profile struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info,omitempty"`
}

// CustomerID extracts the customer id from the first ctmrinfo record, or "".
func CustomerID(profiles []Profile) string {
	for _, p := range profiles {
		if p.Type != ProfileCustomerInfo {
			continue
		}
		var info struct {
			CustomerID string `json:"customerId"`
		}
		if err := json.Unmarshal(p.Info, &info); err != nil {
			return ""
		}
		return info.CustomerID
	}
	return ""
}
