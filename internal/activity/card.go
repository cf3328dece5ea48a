// ABOUTME: Card models carried inside attachments: adaptive cards, hero cards, card actions
// ABOUTME: CardAction keeps unknown properties so they can travel on as button metadata

package activity

import (
	"encoding/json"
	"maps"
)

// Card action types (turn protocol and adaptive card flavors).
const (
	ActionOpenURL     = "openUrl"
	ActionImBack      = "imBack"
	ActionPostBack    = "postBack"
	ActionMessageBack = "messageBack"

	AdaptiveOpenURL  = "Action.OpenUrl"
	AdaptiveSubmit   = "Action.Submit"
	AdaptiveShowCard = "Action.ShowCard"
)

// CardAction is a clickable action on a card or in suggested actions.
// Extra holds every property besides type, title, url and value.
type CardAction struct {
	Type  string
	Title string
	URL   string
	Value any
	Extra map[string]any
}

var cardActionKnownKeys = []string{"type", "title", "url", "value"}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CardAction) UnmarshalJSON(data []byte) error {
	var known struct {
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
		Value any    `json:"value"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range cardActionKnownKeys {
		delete(all, k)
	}
	*c = CardAction{Type: known.Type, Title: known.Title, URL: known.URL, Value: known.Value}
	if len(all) > 0 {
		c.Extra = all
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c CardAction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+4)
	maps.Copy(out, c.Extra)
	out["type"] = c.Type
	if c.Title != "" {
		out["title"] = c.Title
	}
	if c.URL != "" {
		out["url"] = c.URL
	}
	if c.Value != nil {
		out["value"] = c.Value
	}
	return json.Marshal(out)
}

// Metadata returns every property other than type, title and url, or nil if none.
func (c CardAction) Metadata() map[string]any {
	if len(c.Extra) == 0 && c.Value == nil {
		return nil
	}
	md := make(map[string]any, len(c.Extra)+1)
	maps.Copy(md, c.Extra)
	if c.Value != nil {
		md["value"] = c.Value
	}
	return md
}

// ValueString renders Value as text, the way postback buttons publish it.
func (c CardAction) ValueString() string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// AdaptiveCard is the subset of the adaptive card schema the translator renders.
type AdaptiveCard struct {
	Type    string        `json:"type"`
	Version string        `json:"version,omitempty"`
	Body    []CardElement `json:"body,omitempty"`
	Actions []CardAction  `json:"actions,omitempty"`
}

// CardElement is any adaptive card body element. Which fields are meaningful depends on Type.
type CardElement struct {
	Type    string        `json:"type"`
	Text    string        `json:"text,omitempty"`
	Weight  string        `json:"weight,omitempty"`
	Size    string        `json:"size,omitempty"`
	Color   string        `json:"color,omitempty"`
	URL     string        `json:"url,omitempty"`
	AltText string        `json:"altText,omitempty"`
	Poster  string        `json:"poster,omitempty"`
	Items   []CardElement `json:"items,omitempty"`
	Columns []CardElement `json:"columns,omitempty"`
	Images  []CardElement `json:"images,omitempty"`
	Facts   []Fact        `json:"facts,omitempty"`
	Actions []CardAction  `json:"actions,omitempty"`
}

// Fact is a label/value pair in a FactSet.
type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// HeroCard is a title, optional subtitle and text, images and buttons.
type HeroCard struct {
	Title    string       `json:"title,omitempty"`
	Subtitle string       `json:"subtitle,omitempty"`
	Text     string       `json:"text,omitempty"`
	Images   []CardImage  `json:"images,omitempty"`
	Buttons  []CardAction `json:"buttons,omitempty"`
}

// CardImage is an image on a hero card.
type CardImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}
