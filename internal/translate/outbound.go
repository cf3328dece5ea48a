// ABOUTME: Activity to push event translation: text, quick replies, cards and carousels
// ABOUTME: Malformed attachments degrade to whatever fields are present instead of failing

package translate

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/push"
	"github.com/2389/botbridge/internal/richcontent"
)

// ErrEmptyActivity is returned when an activity has neither text nor attachments.
var ErrEmptyActivity = errors.New("activity has no text or attachments")

// ToPushEvent translates an outbound activity into the event to publish. Text takes
// precedence over attachments when both are set.
func ToPushEvent(act *activity.Activity) (push.Event, error) {
	if act == nil {
		return push.Event{}, ErrEmptyActivity
	}

	if act.Text != "" {
		event := push.TextEvent(act.Text)
		event.QuickReplies = quickReplies(act.SuggestedActions)
		return event, nil
	}

	if len(act.Attachments) == 0 {
		return push.Event{}, ErrEmptyActivity
	}

	var content *richcontent.RichContent
	if act.AttachmentLayout == activity.LayoutCarousel {
		cards := make([]*richcontent.RichContent, 0, len(act.Attachments))
		for _, att := range act.Attachments {
			cards = append(cards, attachmentCard(att))
		}
		content = richcontent.NewCarousel(cards...)
	} else {
		content = attachmentCard(act.Attachments[0])
	}
	content.QuickReplies = quickReplies(act.SuggestedActions)

	return push.Event{Type: push.EventRichContent, Content: content}, nil
}

// quickReplies maps suggested actions onto quick replies, or nil if there are none.
func quickReplies(sa *activity.SuggestedActions) *richcontent.QuickReplies {
	if sa == nil {
		return nil
	}
	replies := make([]richcontent.QuickReply, 0, len(sa.Actions))
	for _, a := range sa.Actions {
		value := a.ValueString()
		externalID := value
		if externalID == "" {
			externalID = a.Title
		}
		replies = append(replies, richcontent.QuickReply{
			Title:         a.Title,
			Tooltip:       a.Title,
			PostBackValue: value,
			ExternalID:    externalID,
			Metadata:      a.Extra,
		})
	}
	return richcontent.NewQuickReplies(replies...)
}

// attachmentCard renders one attachment as a card root.
func attachmentCard(att activity.Attachment) *richcontent.RichContent {
	switch att.ContentType {
	case activity.ContentTypeAdaptiveCard:
		var card activity.AdaptiveCard
		if err := att.DecodeContent(&card); err != nil {
			return fallbackCard(att)
		}
		return adaptiveCard(card)
	case activity.ContentTypeHeroCard:
		var card activity.HeroCard
		if err := att.DecodeContent(&card); err != nil {
			return fallbackCard(att)
		}
		return heroCard(card)
	default:
		return fallbackCard(att)
	}
}

// fallbackCard renders the attachment fields that need no decoding.
func fallbackCard(att activity.Attachment) *richcontent.RichContent {
	var elements []richcontent.Element
	if att.Name != "" {
		elements = append(elements, richcontent.Text{Text: att.Name, Tooltip: att.Name})
	}
	if att.ContentURL != "" && strings.HasPrefix(att.ContentType, "image/") {
		elements = append(elements, richcontent.Image{URL: att.ContentURL, Tooltip: att.Name})
	}
	return richcontent.NewCard(elements...)
}

// actionButton converts a card action into a button. Open-URL actions become links,
// everything else publishes the action value back.
func actionButton(a activity.CardAction) richcontent.Button {
	metadata := a.Metadata()

	var action richcontent.ButtonAction
	switch a.Type {
	case activity.AdaptiveOpenURL, activity.ActionOpenURL:
		uri := a.URL
		if uri == "" {
			uri = a.ValueString()
			delete(metadata, "value")
		}
		action = richcontent.Link{Name: a.Title, URI: uri}
	default:
		action = richcontent.PostBack{Text: postBackText(a)}
	}

	if len(metadata) == 0 {
		metadata = nil
	}
	return richcontent.Button{
		Tooltip:  a.Title,
		Title:    a.Title,
		Actions:  []richcontent.ButtonAction{action},
		Metadata: metadata,
	}
}

// postBackText is the action value, or the JSON of a submit action's data when it has no
// value.
func postBackText(a activity.CardAction) string {
	if text := a.ValueString(); text != "" {
		return text
	}
	data, ok := a.Extra["data"]
	if !ok || data == nil {
		return ""
	}
	if text, ok := data.(string); ok {
		return text
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(raw)
}
