// ABOUTME: Table-driven tests for activity to push event translation and back.
// ABOUTME: Verifies card walking, carousel layout, fact links and quick replies.

package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/push"
	"github.com/2389/botbridge/internal/richcontent"
)

func adaptiveAttachment(t *testing.T, card string) activity.Attachment {
	t.Helper()
	return activity.Attachment{ContentType: activity.ContentTypeAdaptiveCard, Content: json.RawMessage(card)}
}

func TestToPushEvent_TextRoundTrip(t *testing.T) {
	for _, text := range []string{"hello", "multi\nline", "ünïcödé 🎉", `quotes "and" {{braces}}`} {
		event, err := ToPushEvent(&activity.Activity{Type: activity.TypeMessage, Text: text})
		require.NoError(t, err)

		assert.Equal(t, push.EventContent, event.Type)
		assert.Equal(t, push.ContentTypePlain, event.ContentType)
		assert.Nil(t, event.QuickReplies)

		back := ToActivity(push.Delivery{ConversationID: "c1", Sequence: 1, Message: event.Message}, "")
		assert.Equal(t, text, back.Text)
	}
}

func TestToPushEvent_TextWithSuggestedActions(t *testing.T) {
	act := &activity.Activity{
		Text: "Pick one",
		SuggestedActions: &activity.SuggestedActions{Actions: []activity.CardAction{
			{Type: activity.ActionImBack, Title: "Red", Value: "red"},
			{Type: activity.ActionImBack, Title: "Blue", Value: "blue", Extra: map[string]any{"id": "b"}},
		}},
	}

	event, err := ToPushEvent(act)
	require.NoError(t, err)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "ContentEvent",
		"contentType": "text/plain",
		"message": "Pick one",
		"quickReplies": {
			"type": "quickReplies",
			"itemsPerRow": 4,
			"replies": [
				{"type": "button", "title": "Red", "tooltip": "Red", "click": {"actions": [{"type": "publishText", "text": "red"}],
					"metadata": [{"type": "ExternalId", "id": "red"}]}},
				{"type": "button", "title": "Blue", "tooltip": "Blue", "click": {"actions": [{"type": "publishText", "text": "blue"}],
					"metadata": [{"type": "ExternalId", "id": "blue"}, {"id": "b"}]}}
			]
		}
	}`, string(data))
}

func TestToPushEvent_Empty(t *testing.T) {
	_, err := ToPushEvent(&activity.Activity{Type: activity.TypeMessage})
	assert.ErrorIs(t, err, ErrEmptyActivity)

	_, err = ToPushEvent(nil)
	assert.ErrorIs(t, err, ErrEmptyActivity)
}

func TestToPushEvent_CarouselLayout(t *testing.T) {
	hero := func(title string) activity.Attachment {
		att, err := activity.NewAttachment(activity.ContentTypeHeroCard, activity.HeroCard{Title: title})
		require.NoError(t, err)
		return att
	}
	atts := []activity.Attachment{hero("one"), hero("two"), hero("three")}

	event, err := ToPushEvent(&activity.Activity{Attachments: atts, AttachmentLayout: activity.LayoutCarousel})
	require.NoError(t, err)

	require.Equal(t, push.EventRichContent, event.Type)
	assert.Equal(t, richcontent.KindCarousel, event.Content.Kind)
	assert.Equal(t, 10, event.Content.Padding)
	require.Len(t, event.Content.Elements, 3)
	for _, el := range event.Content.Elements {
		card, ok := el.(*richcontent.RichContent)
		require.True(t, ok)
		assert.Equal(t, richcontent.KindCard, card.Kind)
	}
}

func TestToPushEvent_ListLayoutUsesFirstAttachmentOnly(t *testing.T) {
	first, err := activity.NewAttachment(activity.ContentTypeHeroCard, activity.HeroCard{Title: "first"})
	require.NoError(t, err)
	second, err := activity.NewAttachment(activity.ContentTypeHeroCard, activity.HeroCard{Title: "second"})
	require.NoError(t, err)

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{first, second}})
	require.NoError(t, err)

	assert.Equal(t, richcontent.KindCard, event.Content.Kind)
	require.Len(t, event.Content.Elements, 1)
	assert.Equal(t, "first", event.Content.Elements[0].(richcontent.Text).Text)
}

func TestToPushEvent_AttachmentsWithSuggestedActions(t *testing.T) {
	att, err := activity.NewAttachment(activity.ContentTypeHeroCard, activity.HeroCard{Title: "card"})
	require.NoError(t, err)

	event, err := ToPushEvent(&activity.Activity{
		Attachments:      []activity.Attachment{att},
		SuggestedActions: &activity.SuggestedActions{Actions: []activity.CardAction{{Type: activity.ActionImBack, Title: "ok", Value: "ok"}}},
	})
	require.NoError(t, err)

	require.NotNil(t, event.Content.QuickReplies)
	assert.Equal(t, 4, event.Content.QuickReplies.ItemsPerRow)
	assert.Equal(t, "ok", event.Content.QuickReplies.Replies[0].PostBackValue)
}

func TestAdaptiveCard_Walk(t *testing.T) {
	att := adaptiveAttachment(t, `{
		"type": "AdaptiveCard",
		"body": [
			{"type": "TextBlock", "text": "Title", "weight": "Bolder", "size": "Large", "color": "accent"},
			{"type": "Container", "items": [
				{"type": "TextBlock", "text": "inside"},
				{"type": "Image", "url": "https://img/a.png", "altText": "a"}
			]},
			{"type": "ColumnSet", "columns": [
				{"type": "Column", "items": [{"type": "TextBlock", "text": "left"}]},
				{"type": "Column", "items": [{"type": "TextBlock", "text": "right"}]}
			]},
			{"type": "ImageSet", "images": [{"type": "Image", "url": "https://img/1.png"}, {"type": "Image", "url": "https://img/2.png"}]},
			{"type": "Media", "poster": "https://img/poster.png"},
			{"type": "Unknown", "text": "ignored"}
		],
		"actions": [
			{"type": "Action.OpenUrl", "title": "Site", "url": "https://site"},
			{"type": "Action.Submit", "title": "Send", "value": "sent", "id": "submit-1"}
		]
	}`)

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{att}})
	require.NoError(t, err)

	data, err := json.Marshal(event.Content)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "vertical",
		"elements": [
			{"type": "text", "text": "Title", "tooltip": "Title", "style": {"bold": true, "size": "large", "color": "accent"}},
			{"type": "text", "text": "inside", "tooltip": "inside"},
			{"type": "image", "url": "https://img/a.png", "tooltip": "a"},
			{"type": "horizontal", "elements": [
				{"type": "vertical", "elements": [{"type": "text", "text": "left", "tooltip": "left"}]},
				{"type": "vertical", "elements": [{"type": "text", "text": "right", "tooltip": "right"}]}
			]},
			{"type": "horizontal", "elements": [
				{"type": "image", "url": "https://img/1.png"},
				{"type": "image", "url": "https://img/2.png"}
			]},
			{"type": "image", "url": "https://img/poster.png"},
			{"type": "horizontal", "elements": [
				{"type": "button", "title": "Site", "tooltip": "Site", "click": {"actions": [{"type": "link", "name": "Site", "uri": "https://site"}]}},
				{"type": "button", "title": "Send", "tooltip": "Send", "click": {
					"actions": [{"type": "publishText", "text": "sent"}],
					"metadata": [{"id": "submit-1", "value": "sent"}]
				}}
			]}
		]
	}`, string(data))
}

func TestAdaptiveCard_SubmitDataBecomesPostBack(t *testing.T) {
	att := adaptiveAttachment(t, `{
		"type": "AdaptiveCard",
		"actions": [
			{"type": "Action.Submit", "title": "Order", "data": {"item": "tea", "qty": 2}},
			{"type": "Action.Submit", "title": "Plain", "data": "plain text"},
			{"type": "Action.Submit", "title": "Empty"}
		]
	}`)

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{att}})
	require.NoError(t, err)

	require.Len(t, event.Content.Elements, 1)
	row := event.Content.Elements[0].(richcontent.Container)
	require.Len(t, row.Children, 3)

	order := row.Children[0].(richcontent.Button)
	assert.Equal(t, []richcontent.ButtonAction{richcontent.PostBack{Text: `{"item":"tea","qty":2}`}}, order.Actions)
	assert.Equal(t, map[string]any{"data": map[string]any{"item": "tea", "qty": float64(2)}}, order.Metadata)

	plain := row.Children[1].(richcontent.Button)
	assert.Equal(t, []richcontent.ButtonAction{richcontent.PostBack{Text: "plain text"}}, plain.Actions)

	empty := row.Children[2].(richcontent.Button)
	assert.Equal(t, []richcontent.ButtonAction{richcontent.PostBack{Text: ""}}, empty.Actions)
}

func TestAdaptiveCard_FactSet(t *testing.T) {
	att := adaptiveAttachment(t, `{
		"type": "AdaptiveCard",
		"body": [{"type": "FactSet", "facts": [
			{"title": "Docs", "value": "[Docs](https://x)"},
			{"title": "Status", "value": "Open"},
			{"title": "Mixed", "value": "see [Docs](https://x)"}
		]}]
	}`)

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{att}})
	require.NoError(t, err)

	require.Len(t, event.Content.Elements, 1)
	facts, ok := event.Content.Elements[0].(richcontent.Container)
	require.True(t, ok)
	assert.Equal(t, richcontent.Vertical, facts.Orientation)
	require.Len(t, facts.Children, 3)

	linkRow := facts.Children[0].(richcontent.Container)
	assert.Equal(t, richcontent.Horizontal, linkRow.Orientation)
	label := linkRow.Children[0].(richcontent.Text)
	assert.True(t, label.Style.Bold)
	button, ok := linkRow.Children[1].(richcontent.Button)
	require.True(t, ok, "markdown link value should become a button")
	assert.Equal(t, []richcontent.ButtonAction{richcontent.Link{Name: "Docs", URI: "https://x"}}, button.Actions)

	plain := facts.Children[1].(richcontent.Container).Children[1]
	assert.Equal(t, richcontent.Text{Text: "Open", Tooltip: "Open"}, plain)

	mixed := facts.Children[2].(richcontent.Container).Children[1]
	assert.Equal(t, richcontent.Text{Text: "see [Docs](https://x)", Tooltip: "see [Docs](https://x)"}, mixed)
}

func TestAdaptiveCard_TextBlockTokens(t *testing.T) {
	att := adaptiveAttachment(t, `{"type":"AdaptiveCard","body":[{"type":"TextBlock","text":"Due {{DATE(2024-01-01,long)}}"}]}`)

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{att}})
	require.NoError(t, err)

	text := event.Content.Elements[0].(richcontent.Text)
	assert.Equal(t, "Due Monday, January 1st, 2024", text.Text)
	assert.True(t, text.Style.IsZero())
}

func TestAdaptiveCard_MalformedFallsBack(t *testing.T) {
	att := activity.Attachment{ContentType: activity.ContentTypeAdaptiveCard, Content: json.RawMessage(`{"body": "nope"`), Name: "broken"}

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{att}})
	require.NoError(t, err)

	assert.Equal(t, []richcontent.Element{richcontent.Text{Text: "broken", Tooltip: "broken"}}, event.Content.Elements)
}

func TestHeroCard(t *testing.T) {
	att, err := activity.NewAttachment(activity.ContentTypeHeroCard, activity.HeroCard{
		Title:    "Choices",
		Subtitle: "pick",
		Images:   []activity.CardImage{{URL: "https://img/h.png", Alt: "h"}},
		Buttons: []activity.CardAction{
			{Type: activity.ActionImBack, Title: "1. Inline", Value: "1"},
			{Type: activity.ActionOpenURL, Title: "Web", Value: "https://web"},
		},
	})
	require.NoError(t, err)

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{att}})
	require.NoError(t, err)

	els := event.Content.Elements
	require.Len(t, els, 5)
	assert.Equal(t, "Choices", els[0].(richcontent.Text).Text)
	assert.Equal(t, "pick", els[1].(richcontent.Text).Text)
	assert.Equal(t, richcontent.Image{URL: "https://img/h.png", Tooltip: "h"}, els[2])

	postBack := els[3].(richcontent.Button)
	assert.Equal(t, []richcontent.ButtonAction{richcontent.PostBack{Text: "1"}}, postBack.Actions)

	link := els[4].(richcontent.Button)
	assert.Equal(t, []richcontent.ButtonAction{richcontent.Link{Name: "Web", URI: "https://web"}}, link.Actions)
	assert.Nil(t, link.Metadata, "url taken from value should not be repeated as metadata")
}

func TestFallbackCard_Image(t *testing.T) {
	att := activity.Attachment{ContentType: "image/png", ContentURL: "https://img/p.png", Name: "p.png"}

	event, err := ToPushEvent(&activity.Activity{Attachments: []activity.Attachment{att}})
	require.NoError(t, err)

	assert.Equal(t, []richcontent.Element{
		richcontent.Text{Text: "p.png", Tooltip: "p.png"},
		richcontent.Image{URL: "https://img/p.png", Tooltip: "p.png"},
	}, event.Content.Elements)
}

func TestParseFactLink(t *testing.T) {
	tests := []struct {
		value string
		title string
		uri   string
		ok    bool
	}{
		{"[Docs](https://x)", "Docs", "https://x", true},
		{"[Release *notes*](https://x/notes)", "Release notes", "https://x/notes", true},
		{"Docs", "", "", false},
		{"[Docs]", "", "", false},
		{"see [Docs](https://x)", "", "", false},
		{"[a](https://a) [b](https://b)", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			title, uri, ok := parseFactLink(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.uri, uri)
		})
	}
}

func TestToActivity(t *testing.T) {
	act := ToActivity(push.Delivery{ConversationID: "dlg-1", Sequence: 7, Message: "hi", SenderID: "consumer-1"}, "cust-42")

	assert.Equal(t, activity.TypeMessage, act.Type)
	assert.Equal(t, "hi", act.Text)
	assert.Equal(t, "dlg-1", act.ConversationID())
	assert.Equal(t, "consumer-1", act.SenderID())
	assert.Equal(t, "cust-42", act.ChannelData.ID)
	assert.Equal(t, ChannelID, act.ChannelID)
	assert.Equal(t, "dlg-1:7", act.ID)
}
