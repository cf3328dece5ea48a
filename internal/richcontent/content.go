// ABOUTME: RichContent root (card or carousel) and the quick replies attached to it
// ABOUTME: Fixed wire constants live here: carousel padding 10, four quick replies per row

package richcontent

import "encoding/json"

// Kind is the wire type of a RichContent root.
type Kind string

const (
	// KindCard is a single card. The renderer lays cards out vertically.
	KindCard Kind = "vertical"
	// KindCarousel is a horizontally scrolling list of cards.
	KindCarousel Kind = "carousel"
)

const (
	// CarouselPadding is the spacing between carousel cards.
	CarouselPadding = 10
	// QuickRepliesPerRow is how many quick replies the renderer shows per row.
	QuickRepliesPerRow = 4
)

// RichContent is the single root of a rich content tree.
type RichContent struct {
	Kind         Kind
	Elements     []Element
	Padding      int
	QuickReplies *QuickReplies
}

// NewCard returns a card root holding elements in reading order.
func NewCard(elements ...Element) *RichContent {
	return &RichContent{Kind: KindCard, Elements: elements}
}

// NewCarousel returns a carousel root with one element per card.
func NewCarousel(cards ...*RichContent) *RichContent {
	elements := make([]Element, 0, len(cards))
	for _, c := range cards {
		elements = append(elements, c)
	}
	return &RichContent{Kind: KindCarousel, Elements: elements, Padding: CarouselPadding}
}

func (rc *RichContent) elementKind() string { return string(rc.Kind) }

// MarshalJSON implements json.Marshaler.
func (rc *RichContent) MarshalJSON() ([]byte, error) {
	elements := rc.Elements
	if elements == nil {
		elements = []Element{}
	}
	out := struct {
		Type         string        `json:"type"`
		Padding      int           `json:"padding,omitempty"`
		Elements     []Element     `json:"elements"`
		QuickReplies *QuickReplies `json:"quickReplies,omitempty"`
	}{
		Type:         string(rc.Kind),
		Elements:     elements,
		QuickReplies: rc.QuickReplies,
	}
	if rc.Kind == KindCarousel {
		out.Padding = rc.Padding
	}
	return json.Marshal(out)
}

// QuickReply is a one-tap reply button shown under a message. A non-empty ExternalID is
// written as an ExternalId metadata entry ahead of Metadata.
type QuickReply struct {
	Title         string
	Tooltip       string
	PostBackValue string
	ExternalID    string
	Metadata      map[string]any
}

// ExternalIDMetadataType tags the metadata entry carrying a quick reply's external id.
const ExternalIDMetadataType = "ExternalId"

// MarshalJSON implements json.Marshaler.
func (q QuickReply) MarshalJSON() ([]byte, error) {
	c, err := newClick([]ButtonAction{PostBack{Text: q.PostBackValue}}, q.Metadata)
	if err != nil {
		return nil, err
	}
	if q.ExternalID != "" {
		external := map[string]any{"type": ExternalIDMetadataType, "id": q.ExternalID}
		c.Metadata = append([]map[string]any{external}, c.Metadata...)
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Tooltip string `json:"tooltip,omitempty"`
		Title   string `json:"title"`
		Click   click  `json:"click"`
	}{Type: "button", Tooltip: q.Tooltip, Title: q.Title, Click: c})
}

// QuickReplies is the row-wrapped set of quick replies attached to a message.
type QuickReplies struct {
	ItemsPerRow int
	Replies     []QuickReply
}

// NewQuickReplies returns an empty set with the renderer's fixed row width.
func NewQuickReplies(replies ...QuickReply) *QuickReplies {
	if replies == nil {
		replies = []QuickReply{}
	}
	return &QuickReplies{ItemsPerRow: QuickRepliesPerRow, Replies: replies}
}

// MarshalJSON implements json.Marshaler.
func (q *QuickReplies) MarshalJSON() ([]byte, error) {
	replies := q.Replies
	if replies == nil {
		replies = []QuickReply{}
	}
	return json.Marshal(struct {
		Type        string       `json:"type"`
		ItemsPerRow int          `json:"itemsPerRow"`
		Replies     []QuickReply `json:"replies"`
	}{Type: "quickReplies", ItemsPerRow: q.ItemsPerRow, Replies: replies})
}
