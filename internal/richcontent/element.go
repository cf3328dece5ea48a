// ABOUTME: Rich element sum type (text, image, button, container) and button actions
// ABOUTME: Each variant writes its own wire JSON with the type tag the renderer expects

package richcontent

import (
	"encoding/json"
	"fmt"
)

// Orientation of a Container.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// Element is a node in a rich content tree. The set of implementations is closed;
// callers switch on the concrete type.
type Element interface {
	elementKind() string
}

// Style is the optional text styling of a Text element.
type Style struct {
	Bold  bool   `json:"bold,omitempty"`
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// IsZero reports whether no style attribute is set.
func (s Style) IsZero() bool {
	return !s.Bold && s.Size == "" && s.Color == ""
}

// Text is a run of styled text.
type Text struct {
	Text    string
	Tooltip string
	Style   Style
}

// Image is a picture referenced by URL. The URL must be allow-listed by the backend.
type Image struct {
	URL     string
	Tooltip string
}

// Button is a clickable element. Metadata is free-form and omitted when empty.
type Button struct {
	Tooltip  string
	Title    string
	Actions  []ButtonAction
	Metadata map[string]any
}

// Container groups child elements in reading order.
type Container struct {
	Orientation Orientation
	Children    []Element
}

func (Text) elementKind() string        { return "text" }
func (Image) elementKind() string       { return "image" }
func (Button) elementKind() string      { return "button" }
func (c Container) elementKind() string { return string(c.Orientation) }

// ButtonAction is what happens when a Button or QuickReply is clicked.
type ButtonAction interface {
	actionKind() string
}

// Link opens a URI.
type Link struct {
	Name string
	URI  string
}

// PostBack publishes Text back into the conversation as if the consumer typed it.
type PostBack struct {
	Text string
}

func (Link) actionKind() string     { return "link" }
func (PostBack) actionKind() string { return "publishText" }

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	out := struct {
		Type    string `json:"type"`
		Text    string `json:"text"`
		Tooltip string `json:"tooltip,omitempty"`
		Style   *Style `json:"style,omitempty"`
	}{Type: t.elementKind(), Text: t.Text, Tooltip: t.Tooltip}
	if !t.Style.IsZero() {
		style := t.Style
		out.Style = &style
	}
	return json.Marshal(out)
}

// MarshalJSON implements json.Marshaler.
func (i Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		URL     string `json:"url"`
		Tooltip string `json:"tooltip,omitempty"`
	}{Type: i.elementKind(), URL: i.URL, Tooltip: i.Tooltip})
}

// click is the wire shape shared by buttons and quick replies.
type click struct {
	Actions  []json.RawMessage `json:"actions"`
	Metadata []map[string]any  `json:"metadata,omitempty"`
}

func newClick(actions []ButtonAction, metadata map[string]any) (click, error) {
	c := click{Actions: make([]json.RawMessage, 0, len(actions))}
	for _, a := range actions {
		raw, err := marshalAction(a)
		if err != nil {
			return click{}, err
		}
		c.Actions = append(c.Actions, raw)
	}
	if len(metadata) > 0 {
		c.Metadata = []map[string]any{metadata}
	}
	return c, nil
}

// MarshalJSON implements json.Marshaler.
func (b Button) MarshalJSON() ([]byte, error) {
	c, err := newClick(b.Actions, b.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Tooltip string `json:"tooltip,omitempty"`
		Title   string `json:"title"`
		Click   click  `json:"click"`
	}{Type: b.elementKind(), Tooltip: b.Tooltip, Title: b.Title, Click: c})
}

// MarshalJSON implements json.Marshaler.
func (c Container) MarshalJSON() ([]byte, error) {
	if c.Orientation != Vertical && c.Orientation != Horizontal {
		return nil, fmt.Errorf("container orientation %q is not vertical or horizontal", c.Orientation)
	}
	children := c.Children
	if children == nil {
		children = []Element{}
	}
	return json.Marshal(struct {
		Type     string    `json:"type"`
		Elements []Element `json:"elements"`
	}{Type: c.elementKind(), Elements: children})
}

func marshalAction(a ButtonAction) (json.RawMessage, error) {
	switch act := a.(type) {
	case Link:
		return json.Marshal(struct {
			Type string `json:"type"`
			Name string `json:"name"`
			URI  string `json:"uri"`
		}{Type: act.actionKind(), Name: act.Name, URI: act.URI})
	case PostBack:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: act.actionKind(), Text: act.Text})
	default:
		return nil, fmt.Errorf("unsupported button action %T", a)
	}
}
